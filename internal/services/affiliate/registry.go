package affiliate

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/utils"
)

// ReferralRegistry resolves referral codes to users and validates codes
// supplied at order time.
type ReferralRegistry struct {
	db    *gorm.DB
	audit *utils.AuditLogger
}

// NewReferralRegistry creates a new referral registry
func NewReferralRegistry(db *gorm.DB, audit *utils.AuditLogger) *ReferralRegistry {
	return &ReferralRegistry{db: db, audit: audit}
}

// Resolve looks up a user by referral code. Returns (nil, nil) when the code
// matches no user.
func (r *ReferralRegistry) Resolve(code string) (*models.User, error) {
	if code == "" {
		return nil, nil
	}
	var user models.User
	err := r.db.Where("referral_code = ?", code).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ValidateForOrder returns the canonical code when inputCode resolves to a
// user other than the ordering user, and "" otherwise. Invalid codes are
// silently dropped so checkout is never blocked; a self-referral attempt is
// recorded as a fraud signal.
func (r *ReferralRegistry) ValidateForOrder(inputCode string, orderingUserID uuid.UUID) string {
	if inputCode == "" {
		return ""
	}
	refUser, err := r.Resolve(inputCode)
	if err != nil {
		log.Printf("referral code lookup failed: %v", err)
		return ""
	}
	if refUser == nil {
		return ""
	}
	if refUser.ID == orderingUserID {
		if err := r.audit.Log(&orderingUserID, utils.AuditSelfReferralAttempt, models.JSON{"input_code": inputCode}); err != nil {
			log.Printf("failed to record self-referral attempt: %v", err)
		}
		return ""
	}
	return refUser.ReferralCode
}
