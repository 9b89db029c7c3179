package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/lamisoft/wadispatch/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createDeliveryLogsTable(),
		createSettingsTable(),
		createSessionsTable(),
	})
	return m.Migrate()
}

func createDeliveryLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_delivery_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryLogModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_delivery_logs_phone_created ON delivery_logs (phone, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_delivery_logs_operation_created ON delivery_logs (operation, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_delivery_logs_actor_id ON delivery_logs (actor_id) WHERE actor_id IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryLogModel{})
		},
	}
}

func createSettingsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_whatsapp_settings",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.SettingsModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SettingsModel{})
		},
	}
}

func createSessionsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_sessions",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SessionModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at) WHERE expires_at IS NOT NULL`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SessionModel{})
		},
	}
}
