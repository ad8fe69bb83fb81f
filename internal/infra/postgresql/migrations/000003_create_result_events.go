package migrations

import (
	"github.com/agrolab/sample-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createResultEventsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_result_events",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ResultEventModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_result_events_sample ON result_events (sample_id, created_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ResultEventModel{})
		},
	}
}
