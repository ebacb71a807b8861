package affiliate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/utils"
)

// Fraud heuristics. All signals are advisory; nothing is blocked
// automatically.
const (
	DefaultBurstWindow   = 24 * time.Hour
	DefaultBurstThreshold = 25
	AutoBlockThreshold   = 80
	anomalyWindow        = 10 * time.Minute
	anomalyThreshold     = 12
	signalListCap        = 20
)

// ClickBurst is a per-code click count inside the trailing window
type ClickBurst struct {
	Code   string `json:"code"`
	Clicks int64  `json:"clicks"`
}

// ConversionCode is a referral code with an unusually high approval count
type ConversionCode struct {
	Code            string  `json:"code"`
	ApprovedOrders  int64   `json:"approved_orders"`
	CommissionTotal float64 `json:"commission_total"`
}

// BlockRecommendation is an advisory flag surfaced to admins
type BlockRecommendation struct {
	Code     string `json:"code"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

// ClickStats summarizes a code's tracked clicks
type ClickStats struct {
	Total  int64 `json:"total"`
	Unique int64 `json:"unique"`
	Today  int64 `json:"today"`
}

// FraudSignalEngine produces read-only fraud signals from the click log and
// the commission ledger, and runs the real-time anomaly check at click time.
// The per-visitor click counter uses Redis when configured and falls back to
// counting click rows.
type FraudSignalEngine struct {
	db       *gorm.DB
	redis    *redis.Client
	registry *ReferralRegistry
	audit    *utils.AuditLogger
}

// NewFraudSignalEngine creates a new fraud signal engine. rdb may be nil.
func NewFraudSignalEngine(db *gorm.DB, rdb *redis.Client, registry *ReferralRegistry, audit *utils.AuditLogger) *FraudSignalEngine {
	return &FraudSignalEngine{db: db, redis: rdb, registry: registry, audit: audit}
}

// RecordClick logs a click on an affiliate link and fires the real-time
// anomaly check. Returns ErrUnknownCode when the code matches no user.
func (e *FraudSignalEngine) RecordClick(ctx context.Context, code, visitor, source, userAgent string) error {
	refUser, err := e.registry.Resolve(code)
	if err != nil {
		return fmt.Errorf("failed to resolve referral code: %w", err)
	}
	if refUser == nil {
		return ErrUnknownCode
	}

	click := models.ClickEvent{
		Code:      code,
		Visitor:   visitor,
		Source:    source,
		UserAgent: userAgent,
	}
	if err := e.db.Create(&click).Error; err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	if visitor != "" {
		count, err := e.visitorClickCount(ctx, code, visitor)
		if err != nil {
			log.Printf("affiliate anomaly check error: %v", err)
		} else if count >= anomalyThreshold {
			if err := e.audit.Log(nil, utils.AuditFraudAnomaly, models.JSON{
				"code":       code,
				"visitor":    visitor,
				"clicks_10m": count,
			}); err != nil {
				log.Printf("failed to record fraud anomaly: %v", err)
			}
		}
	}

	return nil
}

// visitorClickCount returns the number of clicks this (code, visitor) pair
// produced inside the trailing anomaly window, including the current one.
func (e *FraudSignalEngine) visitorClickCount(ctx context.Context, code, visitor string) (int64, error) {
	if e.redis != nil {
		key := fmt.Sprintf("affclick:%s:%s", code, visitor)
		count, err := e.redis.Incr(ctx, key).Result()
		if err == nil {
			if count == 1 {
				e.redis.Expire(ctx, key, anomalyWindow)
			}
			return count, nil
		}
		log.Printf("redis click counter unavailable, falling back to database: %v", err)
	}

	var count int64
	err := e.db.Model(&models.ClickEvent{}).
		Where("code = ? AND visitor = ? AND created_at >= ?", code, visitor, time.Now().Add(-anomalyWindow)).
		Count(&count).Error
	return count, err
}

// Stats summarizes total, unique-visitor and today's clicks for a code
func (e *FraudSignalEngine) Stats(code string) (ClickStats, error) {
	var stats ClickStats

	if err := e.db.Model(&models.ClickEvent{}).
		Where("code = ?", code).Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := e.db.Model(&models.ClickEvent{}).
		Where("code = ?", code).
		Distinct("visitor").Count(&stats.Unique).Error; err != nil {
		return stats, err
	}
	startOfDay := time.Now().Truncate(24 * time.Hour)
	if err := e.db.Model(&models.ClickEvent{}).
		Where("code = ? AND created_at >= ?", code, startOfDay).Count(&stats.Today).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

// SelfReferralAttemptCount counts recorded self-referral attempts
func (e *FraudSignalEngine) SelfReferralAttemptCount() (int64, error) {
	return e.audit.CountByAction(utils.AuditSelfReferralAttempt)
}

// SuspiciousClickBursts returns codes whose click count inside the trailing
// window meets the threshold, highest first, capped at 20 entries
func (e *FraudSignalEngine) SuspiciousClickBursts(window time.Duration, threshold int) ([]ClickBurst, error) {
	bursts := []ClickBurst{}
	err := e.db.Model(&models.ClickEvent{}).
		Select("code, COUNT(*) AS clicks").
		Where("created_at >= ?", time.Now().Add(-window)).
		Group("code").
		Having("COUNT(*) >= ?", threshold).
		Order("clicks DESC").
		Limit(signalListCap).
		Scan(&bursts).Error
	return bursts, err
}

// HighConversionCodes returns codes with at least minApproved approved
// commissions, ordered by commission total, capped at 20 entries
func (e *FraudSignalEngine) HighConversionCodes(minApproved int) ([]ConversionCode, error) {
	codes := []ConversionCode{}
	err := e.db.Model(&models.AffiliateCommission{}).
		Select("referrer_code AS code, COUNT(*) AS approved_orders, COALESCE(SUM(amount), 0) AS commission_total").
		Where("status = ?", models.CommissionAprovada).
		Group("referrer_code").
		Having("COUNT(*) >= ?", minApproved).
		Order("commission_total DESC").
		Limit(signalListCap).
		Scan(&codes).Error
	return codes, err
}

// AutoBlockRecommendations flags codes whose 24h click volume crosses the
// auto-block threshold. Advisory only.
func (e *FraudSignalEngine) AutoBlockRecommendations() ([]BlockRecommendation, error) {
	bursts, err := e.SuspiciousClickBursts(DefaultBurstWindow, DefaultBurstThreshold)
	if err != nil {
		return nil, err
	}
	recommendations := []BlockRecommendation{}
	for _, burst := range bursts {
		if burst.Clicks >= AutoBlockThreshold {
			recommendations = append(recommendations, BlockRecommendation{
				Code:     burst.Code,
				Reason:   "Clique anómalo em 24h",
				Severity: "high",
			})
		}
	}
	return recommendations, nil
}
