package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomString returns a random string of the given length from the reference charset
func randomString(length int) string {
	result := make([]byte, length)
	max := big.NewInt(int64(len(referenceCharset)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform entropy source is broken
			n = big.NewInt(int64(i % len(referenceCharset)))
		}
		result[i] = referenceCharset[n.Int64()]
	}
	return string(result)
}

// GenerateReference generates a unique reference for invoices and payouts
func GenerateReference(prefix string) string {
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s_%s_%s", prefix, timestamp, randomString(8))
}

// GenerateReferralCode generates a short shareable affiliate code
func GenerateReferralCode() string {
	return randomString(6)
}
