// Package migrations provides database migration management for KRAI.
package migrations

import (
	"github.com/krai/engine/internal/models"
	"gorm.io/gorm"
)

// AllMigrations returns all registered migrations in order.
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create all database tables",
		Up: func(tx *gorm.DB) error {
			// AutoMigrate all models in dependency order
			return tx.AutoMigrate(
				// Manufacturer domain
				&models.Manufacturer{},
				&models.ProductSeries{},
				&models.Product{},

				// Document domain
				&models.Document{},
				&models.Chunk{},
				&models.Embedding{},
				&models.ErrorCode{},
				&models.Image{},
				&models.Link{},
				&models.Video{},

				// Pipeline bookkeeping
				&models.QueueItem{},
				&models.StageStatus{},
				&models.PipelineError{},
				&models.AuditLog{},
			)
		},
		Down: func(tx *gorm.DB) error {
			// Drop tables in reverse dependency order
			tables := []string{
				"audit_logs",
				"pipeline_errors",
				"stage_statuses",
				"queue_items",
				"videos",
				"links",
				"images",
				"error_codes",
				"embeddings",
				"chunks",
				"documents",
				"products",
				"product_series",
				"manufacturers",
			}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}
