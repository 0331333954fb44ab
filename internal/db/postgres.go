package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/types"
	"github.com/yungbote/partbase-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "partbase", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		// TranslateError maps driver unique-violations onto
		// gorm.ErrDuplicatedKey; the datasheet cache race handling
		// depends on it.
		TranslateError: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.DatasheetCacheEntry{},
		&types.Component{},
		&types.Pinout{},
		&types.ImportJob{},
		&types.LLMCallLog{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	if err := s.db.Exec(`
		ALTER TABLE "pinout"
		DROP CONSTRAINT IF EXISTS "fk_pinout_component_id";
		ALTER TABLE "pinout"
		ADD CONSTRAINT "fk_pinout_component_id"
		FOREIGN KEY ("component_id")
		REFERENCES "component"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("add fk_pinout_component_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "component"
		DROP CONSTRAINT IF EXISTS "fk_component_datasheet_cache_id";
		ALTER TABLE "component"
		ADD CONSTRAINT "fk_component_datasheet_cache_id"
		FOREIGN KEY ("datasheet_cache_id")
		REFERENCES "datasheet_cache_entry"("id")
		ON DELETE SET NULL
	`).Error; err != nil {
		return fmt.Errorf("add fk_component_datasheet_cache_id: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
