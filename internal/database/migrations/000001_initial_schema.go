package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
)

// CreateInitialSchema creates every table the service needs. The unique index
// on affiliate_commissions.order_id enforces at-most-one commission per order
// at the schema level, so correctness does not depend on request timing.
func CreateInitialSchema() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_initial_schema",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.User{},
				&models.Order{},
				&models.Invoice{},
				&models.AffiliateCommission{},
				&models.AffiliatePayout{},
				&models.PayoutItem{},
				&models.ClickEvent{},
				&models.Audit{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&models.Audit{},
				&models.ClickEvent{},
				&models.PayoutItem{},
				&models.AffiliatePayout{},
				&models.AffiliateCommission{},
				&models.Invoice{},
				&models.Order{},
				&models.User{},
			)
		},
	}
}
