package affiliate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/meritodocs/backend/internal/models"
)

// setupTestDB creates an isolated in-memory database per test
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.Invoice{},
		&models.AffiliateCommission{},
		&models.AffiliatePayout{},
		&models.PayoutItem{},
		&models.ClickEvent{},
		&models.Audit{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, code, referredBy string) *models.User {
	t.Helper()
	user := models.User{
		Name:         strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: "x",
		IsActive:     true,
		ReferralCode: code,
		ReferredBy:   referredBy,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// fakeMailer records outbound mail instead of sending it
type fakeMailer struct {
	requested     []string
	alerts        []string
	statusUpdates []string
}

func (m *fakeMailer) SendPayoutRequested(toEmail, payoutID string, valor float64) error {
	m.requested = append(m.requested, toEmail)
	return nil
}

func (m *fakeMailer) SendPayoutAlert(adminEmail, affiliateEmail string, valor float64, destination string) error {
	m.alerts = append(m.alerts, adminEmail)
	return nil
}

func (m *fakeMailer) SendPayoutStatusUpdate(toEmail, payoutID, status string) error {
	m.statusUpdates = append(m.statusUpdates, status)
	return nil
}
