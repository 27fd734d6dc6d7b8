// Package storage provides the key-value persistence used by the history store.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"truthlens/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// KeyValueStore is a synchronous string store keyed by namespace
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// MemoryStore keeps values in process memory. Values never expire.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	value, found := m.cache.Get(key)
	if !found {
		return "", false, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", false, fmt.Errorf("value under %q is %T, not string", key, value)
	}
	return s, true, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.cache.Set(key, value, gocache.NoExpiration)
	return nil
}

// GormStore persists values in the kv_entries table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open database. The kv_entries table must exist (see models.AutoMigrate).
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) Get(key string) (string, bool, error) {
	var entry models.KVEntry
	err := g.db.Where(&models.KVEntry{Key: key}).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (g *GormStore) Set(key, value string) error {
	entry := models.KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// OpenDatabase connects to Postgres for postgres:// URLs and to SQLite otherwise
func OpenDatabase(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if IsPostgresURL(databaseURL) {
		dialector = postgres.Open(databaseURL)
	} else {
		dialector = sqlite.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database SQL instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// IsPostgresURL reports whether a database URL targets Postgres
func IsPostgresURL(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

// MaskDatabaseURL masks sensitive information in database URL for logging
func MaskDatabaseURL(dbURL string) string {
	if len(dbURL) > 20 {
		return dbURL[:10] + "***masked***" + dbURL[len(dbURL)-10:]
	}
	return "***masked***"
}
