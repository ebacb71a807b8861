package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
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

type noopMailer struct{}

func (noopMailer) SendPayoutRequested(toEmail, payoutID string, valor float64) error { return nil }
func (noopMailer) SendPayoutAlert(adminEmail, affiliateEmail string, valor float64, destination string) error {
	return nil
}
func (noopMailer) SendPayoutStatusUpdate(toEmail, payoutID, status string) error { return nil }

func newAffiliateRouter(t *testing.T, db *gorm.DB, user *models.User) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	audit := utils.NewAuditLogger(db)
	registry := affiliate.NewReferralRegistry(db, audit)
	ledger := affiliate.NewCommissionLedger(db)
	payout := affiliate.NewPayoutManager(db, ledger, audit, noopMailer{}, "")
	fraud := affiliate.NewFraudSignalEngine(db, nil, registry, audit)
	handler := NewAffiliateHandler(db, ledger, payout, fraud)

	router := gin.New()
	if user != nil {
		router.Use(func(c *gin.Context) {
			c.Set("user_id", user.ID.String())
			c.Set("email", user.Email)
		})
	}
	router.GET("/api/affiliates/summary", handler.Summary)
	router.POST("/api/affiliates/request-payout", handler.RequestPayout)
	router.POST("/api/affiliates/click", handler.TrackClick)
	return router
}

func createHandlerUser(t *testing.T, db *gorm.DB, email, code string) *models.User {
	t.Helper()
	user := models.User{
		Name:         strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: "x",
		IsActive:     true,
		ReferralCode: code,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSummaryPayload(t *testing.T) {
	db := setupTestDB(t)
	user := createHandlerUser(t, db, "ana@example.com", "ABC123")
	router := newAffiliateRouter(t, db, user)

	commission := models.AffiliateCommission{
		OrderID:      user.ID, // any uuid works here
		ReferrerCode: "ABC123",
		Amount:       180.00,
		Status:       models.CommissionAprovada,
	}
	require.NoError(t, db.Create(&commission).Error)

	w := performJSON(router, http.MethodGet, "/api/affiliates/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "ABC123", payload["code"])
	assert.Equal(t, 180.00, payload["available"])
	assert.Equal(t, 0.00, payload["outstanding"])
	assert.Len(t, payload["commissions"], 1)

	stats, ok := payload["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0.00, stats["clicks_total"])
}

func TestSummaryWithoutCode(t *testing.T) {
	db := setupTestDB(t)
	user := createHandlerUser(t, db, "rui@example.com", "")
	router := newAffiliateRouter(t, db, user)

	w := performJSON(router, http.MethodGet, "/api/affiliates/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Empty(t, payload["commissions"])
	assert.NotContains(t, payload, "available")
}

func TestSummaryUnauthenticated(t *testing.T) {
	db := setupTestDB(t)
	router := newAffiliateRouter(t, db, nil)

	w := performJSON(router, http.MethodGet, "/api/affiliates/summary", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestPayoutWithoutBalance(t *testing.T) {
	db := setupTestDB(t)
	user := createHandlerUser(t, db, "ana@example.com", "ABC123")
	router := newAffiliateRouter(t, db, user)

	w := performJSON(router, http.MethodPost, "/api/affiliates/request-payout", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Sem saldo disponível para levantamento")
}

func TestRequestPayoutSucceeds(t *testing.T) {
	db := setupTestDB(t)
	user := createHandlerUser(t, db, "ana@example.com", "ABC123")
	router := newAffiliateRouter(t, db, user)

	commission := models.AffiliateCommission{
		OrderID:      user.ID,
		ReferrerCode: "ABC123",
		Amount:       270.00,
		Status:       models.CommissionAprovada,
	}
	require.NoError(t, db.Create(&commission).Error)

	w := performJSON(router, http.MethodPost, "/api/affiliates/request-payout", gin.H{"mpesa": "841234567"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pedido registado")

	var payout models.AffiliatePayout
	require.NoError(t, db.First(&payout).Error)
	assert.Equal(t, 270.00, payout.Valor)
	assert.Equal(t, "841234567", payout.MpesaDestino)
}

func TestTrackClickRequiresCode(t *testing.T) {
	db := setupTestDB(t)
	router := newAffiliateRouter(t, db, nil)

	w := performJSON(router, http.MethodPost, "/api/affiliates/click", gin.H{"visitor": "v1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrackClickUnknownCode(t *testing.T) {
	db := setupTestDB(t)
	router := newAffiliateRouter(t, db, nil)

	w := performJSON(router, http.MethodPost, "/api/affiliates/click", gin.H{"code": "NOPE99", "visitor": "v1"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Código inválido")
}

func TestTrackClickRecordsEvent(t *testing.T) {
	db := setupTestDB(t)
	createHandlerUser(t, db, "ana@example.com", "ABC123")
	router := newAffiliateRouter(t, db, nil)

	w := performJSON(router, http.MethodPost, "/api/affiliates/click", gin.H{"code": "ABC123", "visitor": "v1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "click tracked")

	var count int64
	require.NoError(t, db.Model(&models.ClickEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
