package affiliate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
)

func createCommission(t *testing.T, db *gorm.DB, code string, amount float64, status models.CommissionStatus) *models.AffiliateCommission {
	t.Helper()
	commission := models.AffiliateCommission{
		OrderID:      uuid.New(),
		ReferrerCode: code,
		Amount:       amount,
		Status:       status,
	}
	require.NoError(t, db.Create(&commission).Error)
	return &commission
}

func TestCreateForOrder(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewCommissionLedger(db)

	orderID := uuid.New()
	commission, err := ledger.CreateForOrder(orderID, "ABC123", "rui@example.com", 180.00, models.CommissionAprovada)
	require.NoError(t, err)
	assert.Equal(t, orderID, commission.OrderID)
	assert.Equal(t, "ABC123", commission.ReferrerCode)
	assert.Equal(t, 180.00, commission.Amount)
	assert.Equal(t, models.CommissionAprovada, commission.Status)
	assert.Nil(t, commission.PayoutID)
}

func TestCreateForOrderRejectsDuplicate(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewCommissionLedger(db)

	orderID := uuid.New()
	_, err := ledger.CreateForOrder(orderID, "ABC123", "rui@example.com", 180.00, models.CommissionAprovada)
	require.NoError(t, err)

	_, err = ledger.CreateForOrder(orderID, "ABC123", "rui@example.com", 180.00, models.CommissionAprovada)
	assert.ErrorIs(t, err, ErrDuplicateCommission)

	var count int64
	require.NoError(t, db.Model(&models.AffiliateCommission{}).Where("order_id = ?", orderID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTotalsByStatus(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewCommissionLedger(db)

	createCommission(t, db, "ABC123", 50.00, models.CommissionPendente)
	createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)
	createCommission(t, db, "ABC123", 90.00, models.CommissionAprovada)
	createCommission(t, db, "ABC123", 30.00, models.CommissionPago)
	createCommission(t, db, "OTHER1", 999.00, models.CommissionAprovada)

	totals, err := ledger.TotalsByStatus("ABC123")
	require.NoError(t, err)
	assert.Equal(t, 50.00, totals.Pending)
	assert.Equal(t, 270.00, totals.Approved)
	assert.Equal(t, 30.00, totals.Paid)
}

func TestTotalsByStatusEmpty(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewCommissionLedger(db)

	totals, err := ledger.TotalsByStatus("ABC123")
	require.NoError(t, err)
	assert.Equal(t, CommissionTotals{}, totals)
}

func TestTotalAvailableCountsOnlyApproved(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewCommissionLedger(db)

	createCommission(t, db, "ABC123", 50.00, models.CommissionPendente)
	createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)
	createCommission(t, db, "ABC123", 30.00, models.CommissionPago)

	total, err := ledger.TotalAvailable("ABC123")
	require.NoError(t, err)
	assert.Equal(t, 180.00, total)
}

func TestListForCodeNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewCommissionLedger(db)

	older := createCommission(t, db, "ABC123", 10.00, models.CommissionAprovada)
	require.NoError(t, db.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)
	newer := createCommission(t, db, "ABC123", 20.00, models.CommissionAprovada)

	commissions, err := ledger.ListForCode("ABC123")
	require.NoError(t, err)
	require.Len(t, commissions, 2)
	assert.Equal(t, newer.ID, commissions[0].ID)
	assert.Equal(t, older.ID, commissions[1].ID)
}

func TestAllocateToPayout(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewCommissionLedger(db)

	createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)
	createCommission(t, db, "ABC123", 90.00, models.CommissionAprovada)
	paid := createCommission(t, db, "ABC123", 30.00, models.CommissionPago)
	other := createCommission(t, db, "OTHER1", 40.00, models.CommissionAprovada)

	payoutID := uuid.New()
	require.NoError(t, ledger.AllocateToPayout("ABC123", payoutID))

	var allocated []models.AffiliateCommission
	require.NoError(t, db.Where("payout_id = ?", payoutID).Find(&allocated).Error)
	assert.Len(t, allocated, 2)
	for _, c := range allocated {
		assert.Equal(t, models.CommissionPago, c.Status)
	}

	// untouched rows keep their state
	var reloaded models.AffiliateCommission
	require.NoError(t, db.First(&reloaded, "id = ?", paid.ID).Error)
	assert.Nil(t, reloaded.PayoutID)
	var reloadedOther models.AffiliateCommission
	require.NoError(t, db.First(&reloadedOther, "id = ?", other.ID).Error)
	assert.Equal(t, models.CommissionAprovada, reloadedOther.Status)

	available, err := ledger.TotalAvailable("ABC123")
	require.NoError(t, err)
	assert.Equal(t, 0.00, available)
}

func TestAllocateByIDsTouchesOnlyGivenRows(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewCommissionLedger(db)

	first := createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)
	second := createCommission(t, db, "ABC123", 90.00, models.CommissionAprovada)

	payoutID := uuid.New()
	require.NoError(t, ledger.AllocateByIDs(nil, []uuid.UUID{first.ID}, payoutID))

	var reloaded models.AffiliateCommission
	require.NoError(t, db.First(&reloaded, "id = ?", first.ID).Error)
	assert.Equal(t, models.CommissionPago, reloaded.Status)
	require.NotNil(t, reloaded.PayoutID)
	assert.Equal(t, payoutID, *reloaded.PayoutID)

	var reloadedSecond models.AffiliateCommission
	require.NoError(t, db.First(&reloadedSecond, "id = ?", second.ID).Error)
	assert.Equal(t, models.CommissionAprovada, reloadedSecond.Status)
}

func TestConversionRows(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewCommissionLedger(db)

	createCommission(t, db, "ABC123", 180.00, models.CommissionAprovada)
	createCommission(t, db, "ABC123", 90.00, models.CommissionAprovada)
	createCommission(t, db, "ABC123", 30.00, models.CommissionPago)
	createCommission(t, db, "OTHER1", 10.00, models.CommissionAprovada)

	rows, err := ledger.ConversionRows()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// highest commission total first
	assert.Equal(t, "ABC123", rows[0].ReferrerCode)
	assert.Equal(t, int64(3), rows[0].TotalOrders)
	assert.Equal(t, int64(2), rows[0].ApprovedOrders)
	assert.Equal(t, 300.00, rows[0].CommissionTotal)

	assert.Equal(t, "OTHER1", rows[1].ReferrerCode)
	assert.Equal(t, int64(1), rows[1].TotalOrders)
}
