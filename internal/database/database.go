package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/hypechain/backend/internal/config"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize opens the configured database and stores it in DB
func Initialize(cfg *config.Config) error {
	db, err := Open(cfg.DBDriver, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	DB = db
	logger.Log.Info("Database connected", zap.String("driver", cfg.DBDriver))
	return nil
}

// Open creates and configures a gorm connection for "postgres" or "sqlite".
// Duplicate-key violations are translated to gorm.ErrDuplicatedKey.
func Open(driver, dsn string, verbose bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormLogger := gormlogger.Default.LogMode(gormlogger.Silent)
	if verbose {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if driver == "sqlite" {
		// One writer; an in-memory database also only exists per connection.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to configure sqlite: %w", err)
		}
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// OpenInMemory returns a migrated private SQLite database, used by tests and
// the CLI's --memory mode.
func OpenInMemory() (*gorm.DB, error) {
	db, err := Open("sqlite", ":memory:", false)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs auto-migration for all models
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	err := db.AutoMigrate(
		&models.Content{},
		&models.Share{},
		&models.Engagement{},
		&models.RevenueEvent{},
		&models.RevenuePayout{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

// createIndexes creates indexes gorm tags cannot express
func createIndexes(db *gorm.DB) error {
	// At most one live share per wallet per content. Share creation relies on
	// this to turn a concurrent insert into a duplicate-key error.
	err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_shares_active_wallet ON shares (content_id, LOWER(wallet_address)) WHERE is_deleted = false").Error
	if err != nil {
		return err
	}

	optional := []string{
		"CREATE INDEX IF NOT EXISTS idx_shares_wallet_lower ON shares (LOWER(wallet_address))",
		"CREATE INDEX IF NOT EXISTS idx_contents_creator_lower ON contents (LOWER(creator_wallet))",
		"CREATE INDEX IF NOT EXISTS idx_contents_discovery ON contents (created_at DESC) WHERE is_deleted = false",
		"CREATE INDEX IF NOT EXISTS idx_shares_earnings ON shares (earnings_lamports DESC) WHERE is_deleted = false",
	}
	for _, stmt := range optional {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Log.Warn("Could not create index", zap.String("statement", indexName(stmt)), zap.Error(err))
		}
	}
	return nil
}

func indexName(stmt string) string {
	fields := strings.Fields(stmt)
	for i, f := range fields {
		if f == "EXISTS" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return stmt
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
