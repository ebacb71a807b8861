package affiliate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/utils"
)

func newPayoutManager(db *gorm.DB, mailer *fakeMailer) *PayoutManager {
	ledger := NewCommissionLedger(db)
	audit := utils.NewAuditLogger(db)
	return NewPayoutManager(db, ledger, audit, mailer, "admin@meritodocs.co.mz")
}

func TestRequestPayoutWithoutCode(t *testing.T) {
	db := setupTestDB(t)
	manager := newPayoutManager(db, &fakeMailer{})

	user := createUser(t, db, "rui@example.com", "", "")
	_, err := manager.RequestPayout(user, "mpesa", "", "841234567")
	assert.ErrorIs(t, err, ErrNoReferralCode)
}

func TestRequestPayoutWithoutBalance(t *testing.T) {
	db := setupTestDB(t)
	manager := newPayoutManager(db, &fakeMailer{})

	user := createUser(t, db, "ana@example.com", "ABC123", "")
	createCommission(t, db, "ABC123", 50.00, models.CommissionPendente)

	_, err := manager.RequestPayout(user, "mpesa", "", "841234567")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRequestPayoutSnapshotsApprovedCommissions(t *testing.T) {
	db := setupTestDB(t)
	mailer := &fakeMailer{}
	manager := newPayoutManager(db, mailer)

	user := createUser(t, db, "ana@example.com", "ABC123", "")
	first := createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)
	second := createCommission(t, db, "ABC123", 90.00, models.CommissionAprovada)
	createCommission(t, db, "ABC123", 50.00, models.CommissionPendente)

	payout, err := manager.RequestPayout(user, "", "por favor", "841234567")
	require.NoError(t, err)
	assert.Equal(t, 270.00, payout.Valor)
	assert.Equal(t, "mpesa", payout.Metodo)
	assert.Equal(t, models.PayoutSolicitado, payout.Status)

	var items []models.PayoutItem
	require.NoError(t, db.Where("payout_id = ?", payout.ID).Find(&items).Error)
	require.Len(t, items, 2)
	snapshotted := []uuid.UUID{items[0].CommissionID, items[1].CommissionID}
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, snapshotted)

	// commissions stay APROVADA until the payout is actually paid
	var still int64
	require.NoError(t, db.Model(&models.AffiliateCommission{}).
		Where("referrer_code = ? AND status = ?", "ABC123", models.CommissionAprovada).
		Count(&still).Error)
	assert.Equal(t, int64(2), still)

	assert.Equal(t, []string{"ana@example.com"}, mailer.requested)
	assert.Equal(t, []string{"admin@meritodocs.co.mz"}, mailer.alerts)
}

func TestRequestPayoutBlocksWhileOutstanding(t *testing.T) {
	db := setupTestDB(t)
	manager := newPayoutManager(db, &fakeMailer{})

	user := createUser(t, db, "ana@example.com", "ABC123", "")
	createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)

	_, err := manager.RequestPayout(user, "mpesa", "", "841234567")
	require.NoError(t, err)

	// the open request absorbs the whole approved balance
	_, err = manager.RequestPayout(user, "mpesa", "", "841234567")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestUpdateStatusUnknownPayout(t *testing.T) {
	db := setupTestDB(t)
	manager := newPayoutManager(db, &fakeMailer{})

	_, err := manager.UpdateStatus(uuid.New(), models.PayoutPago, uuid.New(), "")
	assert.ErrorIs(t, err, ErrPayoutNotFound)
}

func TestUpdateStatusNormalizesApprovalToPaid(t *testing.T) {
	db := setupTestDB(t)
	mailer := &fakeMailer{}
	manager := newPayoutManager(db, mailer)

	user := createUser(t, db, "ana@example.com", "ABC123", "")
	admin := createUser(t, db, "admin@example.com", "ADM001", "")
	commission := createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)

	payout, err := manager.RequestPayout(user, "mpesa", "", "841234567")
	require.NoError(t, err)

	final, err := manager.UpdateStatus(payout.ID, models.PayoutAprovado, admin.ID, "processado")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutPago, final)

	var reloaded models.AffiliatePayout
	require.NoError(t, db.First(&reloaded, "id = ?", payout.ID).Error)
	assert.Equal(t, models.PayoutPago, reloaded.Status)
	assert.Equal(t, "processado", reloaded.Notes)
	require.NotNil(t, reloaded.ProcessedBy)
	assert.Equal(t, admin.ID, *reloaded.ProcessedBy)
	assert.NotNil(t, reloaded.ProcessedAt)

	// the snapshotted commission settles with the payout
	var settled models.AffiliateCommission
	require.NoError(t, db.First(&settled, "id = ?", commission.ID).Error)
	assert.Equal(t, models.CommissionPago, settled.Status)
	require.NotNil(t, settled.PayoutID)
	assert.Equal(t, payout.ID, *settled.PayoutID)

	assert.Equal(t, []string{"PAGO"}, mailer.statusUpdates)
}

func TestUpdateStatusSettlesOnlySnapshottedCommissions(t *testing.T) {
	db := setupTestDB(t)
	manager := newPayoutManager(db, &fakeMailer{})

	user := createUser(t, db, "ana@example.com", "ABC123", "")
	admin := createUser(t, db, "admin@example.com", "ADM001", "")
	createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)

	payout, err := manager.RequestPayout(user, "mpesa", "", "841234567")
	require.NoError(t, err)

	// approved after the request, outside the snapshot
	late := createCommission(t, db, "ABC123", 100.00, models.CommissionAprovada)

	_, err = manager.UpdateStatus(payout.ID, models.PayoutPago, admin.ID, "")
	require.NoError(t, err)

	var reloaded models.AffiliateCommission
	require.NoError(t, db.First(&reloaded, "id = ?", late.ID).Error)
	assert.Equal(t, models.CommissionAprovada, reloaded.Status)
	assert.Nil(t, reloaded.PayoutID)

	available, err := NewCommissionLedger(db).TotalAvailable("ABC123")
	require.NoError(t, err)
	assert.Equal(t, 100.00, available)
}

func TestUpdateStatusRejectionReleasesBalance(t *testing.T) {
	db := setupTestDB(t)
	manager := newPayoutManager(db, &fakeMailer{})

	user := createUser(t, db, "ana@example.com", "ABC123", "")
	admin := createUser(t, db, "admin@example.com", "ADM001", "")
	createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)

	payout, err := manager.RequestPayout(user, "mpesa", "", "841234567")
	require.NoError(t, err)

	final, err := manager.UpdateStatus(payout.ID, models.PayoutRejeitado, admin.ID, "dados inválidos")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRejeitado, final)

	// commission untouched, balance available again
	outstanding, err := manager.OutstandingForUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.00, outstanding)

	next, err := manager.RequestPayout(user, "mpesa", "", "841234567")
	require.NoError(t, err)
	assert.Equal(t, 180.00, next.Valor)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	db := setupTestDB(t)
	manager := newPayoutManager(db, &fakeMailer{})

	user := createUser(t, db, "ana@example.com", "ABC123", "")
	admin := createUser(t, db, "admin@example.com", "ADM001", "")
	createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)

	payout, err := manager.RequestPayout(user, "mpesa", "", "841234567")
	require.NoError(t, err)

	_, err = manager.UpdateStatus(payout.ID, models.PayoutRejeitado, admin.ID, "")
	require.NoError(t, err)

	_, err = manager.UpdateStatus(payout.ID, models.PayoutPago, admin.ID, "")
	var transitionErr *models.ErrInvalidTransition
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "payout", transitionErr.Entity)
}

func TestSettleFallsBackToCodeAllocation(t *testing.T) {
	db := setupTestDB(t)
	manager := newPayoutManager(db, &fakeMailer{})

	user := createUser(t, db, "ana@example.com", "ABC123", "")
	admin := createUser(t, db, "admin@example.com", "ADM001", "")
	commission := createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)

	// a payout created before snapshotting existed has no items
	payout := models.AffiliatePayout{
		UserID: user.ID,
		Valor:  180.00,
		Metodo: "mpesa",
		Status: models.PayoutSolicitado,
	}
	require.NoError(t, db.Create(&payout).Error)

	_, err := manager.UpdateStatus(payout.ID, models.PayoutPago, admin.ID, "")
	require.NoError(t, err)

	var settled models.AffiliateCommission
	require.NoError(t, db.First(&settled, "id = ?", commission.ID).Error)
	assert.Equal(t, models.CommissionPago, settled.Status)
	require.NotNil(t, settled.PayoutID)
	assert.Equal(t, payout.ID, *settled.PayoutID)
}
