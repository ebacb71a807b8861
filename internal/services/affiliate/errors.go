package affiliate

import "errors"

var (
	// ErrInsufficientBalance is returned when a payout is requested with no
	// available approved balance
	ErrInsufficientBalance = errors.New("no available balance for withdrawal")

	// ErrNoReferralCode is returned when the user has no affiliate code
	ErrNoReferralCode = errors.New("user has no referral code")

	// ErrDuplicateCommission is returned when a commission already exists for
	// the order
	ErrDuplicateCommission = errors.New("commission already exists for order")

	// ErrPayoutNotFound is returned for an unknown payout id
	ErrPayoutNotFound = errors.New("payout not found")

	// ErrUnknownCode is returned when a referral code resolves to no user
	ErrUnknownCode = errors.New("unknown referral code")
)
