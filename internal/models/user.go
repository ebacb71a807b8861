package models

import (
	"time"
)

// User represents a user in the system
type User struct {
	Base
	Name         string     `gorm:"type:varchar(100)" json:"name"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	IsAdmin      bool       `gorm:"default:false" json:"is_admin"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	ReferralCode string     `gorm:"type:varchar(20);uniqueIndex" json:"referral_code"`
	ReferredBy   string     `gorm:"type:varchar(20)" json:"referred_by"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}
