// Package sqlstore keeps the polygon table as a single row in a SQL database.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/db"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/store"
)

const schema = "napoli"

// Object is one stored blob keyed by name.
type Object struct {
	Key       string `gorm:"primaryKey;column:object_key"`
	Body      []byte `gorm:"column:body;not null"`
	UpdatedAt time.Time
}

type Backend struct {
	db    *gorm.DB
	table string
	log   *logger.Logger
}

func init() {
	store.RegisterBackend(config.BackendSQL, func(_ context.Context, cfg config.Store, log *logger.Logger) (store.Backend, error) {
		conn, err := db.Open(cfg.SQLDriver, cfg.DatabaseURL, log)
		if err != nil {
			return nil, classify("connect", err)
		}
		return New(conn, log)
	})
}

// New prepares the objects table on conn.
func New(conn *gorm.DB, log *logger.Logger) (*Backend, error) {
	if err := db.EnsureSchema(conn, schema); err != nil {
		return nil, classify("ensure schema", err)
	}
	table := db.QualifiedTable(conn, schema, "objects")
	if err := conn.Table(table).AutoMigrate(&Object{}); err != nil {
		return nil, classify("migrate", err)
	}
	return &Backend{db: conn, table: table, log: log.With("backend", "sql", "table", table)}, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var obj Object
	err := b.db.WithContext(ctx).Table(b.table).First(&obj, "object_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify("get", err)
	}
	return obj.Body, nil
}

func (b *Backend) Put(ctx context.Context, key string, body []byte) error {
	obj := Object{Key: key, Body: body, UpdatedAt: time.Now().UTC()}
	err := b.db.WithContext(ctx).Table(b.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "object_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&obj).Error
	if err != nil {
		return classify("put", err)
	}
	return nil
}

// classify maps Postgres authentication failures (SQLSTATE class 28) to
// credentials errors; everything else is transient.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "28" {
		return fmt.Errorf("%w: sql %s: %w", store.ErrCredentials, op, err)
	}
	return fmt.Errorf("%w: sql %s: %w", store.ErrTransient, op, err)
}
