package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fintrack/internal/config"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// Manager handles database operations
type Manager struct {
	db            *gorm.DB
	driver        string
	migrateURL    string
	migrationsDir string
}

// NewManager opens the database selected by cfg.DBDriver.
func NewManager(cfg *config.Config) (*Manager, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	if cfg.IsProduction() {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case DriverPostgres:
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  PostgresDSN(cfg),
			PreferSimpleProtocol: true,
		}), gormCfg)
	case DriverSQLite:
		db, err = gorm.Open(sqlite.Open(SQLiteDSN(cfg.DBPath)), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (use postgres or sqlite)", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}
	if cfg.DBDriver == DriverSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &Manager{
		db:            db,
		driver:        cfg.DBDriver,
		migrateURL:    PostgresURL(cfg),
		migrationsDir: cfg.MigrationsDir,
	}, nil
}

// Migrate brings the schema up to date. Postgres runs the versioned SQL
// files; SQLite is migrated from the models.
func (m *Manager) Migrate() error {
	if m.driver == DriverSQLite {
		return AutoMigrate(m.db)
	}
	return m.RunMigrations()
}

// RunMigrations applies pending SQL migrations from the migrations directory.
func (m *Manager) RunMigrations() error {
	logger.Get().Info("Running database migrations...")

	mig, err := migrate.New(MigrationsURL(m.migrationsDir), m.migrateURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := mig.Close()
		if srcErr != nil {
			logger.Get().Warnf("migrate source close error: %v", srcErr)
		}
		if dbErr != nil {
			logger.Get().Warnf("migrate database close error: %v", dbErr)
		}
	}()

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Get().Info("Database migrations completed successfully")
	return nil
}

// AutoMigrate creates the schema from the models and inserts the default
// categories.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Transaction{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return EnsureDefaultCategories(db)
}

// DefaultCategories are the global categories every user sees.
var DefaultCategories = []models.Category{
	{Name: "Salary", Type: models.CategoryTypeIncome},
	{Name: "Freelance", Type: models.CategoryTypeIncome},
	{Name: "Investment", Type: models.CategoryTypeIncome},
	{Name: "Food", Type: models.CategoryTypeExpense},
	{Name: "Transportation", Type: models.CategoryTypeExpense},
	{Name: "Entertainment", Type: models.CategoryTypeExpense},
	{Name: "Utilities", Type: models.CategoryTypeExpense},
	{Name: "Healthcare", Type: models.CategoryTypeExpense},
	{Name: "Shopping", Type: models.CategoryTypeExpense},
}

// EnsureDefaultCategories inserts any missing global category. NULL user ids
// never collide in unique indexes, so existence is checked explicitly.
func EnsureDefaultCategories(db *gorm.DB) error {
	for _, def := range DefaultCategories {
		var count int64
		if err := db.Model(&models.Category{}).
			Where("name = ? AND type = ? AND user_id IS NULL", def.Name, def.Type).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check default category %s: %w", def.Name, err)
		}
		if count > 0 {
			continue
		}
		cat := models.Category{Name: def.Name, Type: def.Type}
		if err := db.Create(&cat).Error; err != nil {
			return fmt.Errorf("create default category %s: %w", def.Name, err)
		}
	}
	return nil
}

// Ping checks that the database answers.
func (m *Manager) Ping(ctx context.Context) error {
	return Ping(ctx, m.db)
}

// Ping checks that db answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the underlying GORM database instance
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Driver returns the configured driver name.
func (m *Manager) Driver() string {
	return m.driver
}
