package jobs

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/services/affiliate"
	"github.com/meritodocs/backend/internal/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AffiliateCommission{},
		&models.ClickEvent{},
		&models.Audit{},
	))
	return db
}

type recordingDigestMailer struct {
	to   []string
	html []string
}

func (m *recordingDigestMailer) SendFraudDigest(adminEmail, digestHTML string) error {
	m.to = append(m.to, adminEmail)
	m.html = append(m.html, digestHTML)
	return nil
}

func newTestFraudEngine(db *gorm.DB) *affiliate.FraudSignalEngine {
	audit := utils.NewAuditLogger(db)
	registry := affiliate.NewReferralRegistry(db, audit)
	return affiliate.NewFraudSignalEngine(db, nil, registry, audit)
}

func TestFraudDigestSendsSummary(t *testing.T) {
	db := setupTestDB(t)
	mailer := &recordingDigestMailer{}

	for i := 0; i < int(affiliate.AutoBlockThreshold); i++ {
		click := models.ClickEvent{Code: "HOT001", Visitor: fmt.Sprintf("v%d", i)}
		require.NoError(t, db.Create(&click).Error)
	}

	job := NewFraudDigestJob(newTestFraudEngine(db), mailer, "admin@meritodocs.co.mz")
	job.Run()

	require.Len(t, mailer.to, 1)
	assert.Equal(t, "admin@meritodocs.co.mz", mailer.to[0])
	assert.Contains(t, mailer.html[0], "HOT001")
	assert.Contains(t, mailer.html[0], "Clique anómalo em 24h")
}

func TestFraudDigestSkipsWithoutAdminEmail(t *testing.T) {
	db := setupTestDB(t)
	mailer := &recordingDigestMailer{}

	job := NewFraudDigestJob(newTestFraudEngine(db), mailer, "")
	job.Run()

	assert.Empty(t, mailer.to)
}
