package migrations

import (
	"github.com/agrolab/sample-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createChangeRequestsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_change_requests",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ChangeRequestModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_change_requests_sample ON change_requests (sample_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_change_requests_undispatched ON change_requests (created_at) WHERE status = 'pending_approval' AND dispatched = false`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ChangeRequestModel{})
		},
	}
}
