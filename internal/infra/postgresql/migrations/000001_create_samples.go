package migrations

import (
	"github.com/agrolab/sample-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createSamplesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_samples",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SampleModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_samples_farm_created ON samples (farm_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_samples_status ON samples (status)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_samples_farm_container ON samples (farm_id, container_id)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_samples_lab_number ON samples (lab_number) WHERE lab_number IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SampleModel{})
		},
	}
}
