package store

import (
	"context"
	"errors"
	"time"

	"github.com/diewo77/bar-stock/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL keeps snapshots in the kv_entries table of any gorm database.
type SQL struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQL { return &SQL{db: db} }

func (s *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e models.KVEntry
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(e.Value), true, nil
}

func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	e := models.KVEntry{Name: key, Value: string(value), UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}
