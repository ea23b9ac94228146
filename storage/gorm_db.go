package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"screedflow/config"
	"screedflow/models"
)

// InitGormDB initializes GORM database connection
func InitGormDB(cfg config.Config) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.Open(cfg.PostgresDSN()+" TimeZone=UTC"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect with gorm: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return gormDB, nil
}

// GormBlobStore stores each collection as one row of the snapshot_blobs table.
type GormBlobStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewGormBlobStore(db *gorm.DB, logger *zap.Logger) *GormBlobStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormBlobStore{db: db, logger: logger}
}

func (s *GormBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row models.SnapshotBlobGorm
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read blob %s: %w", key, err)
	}
	return row.Data, true, nil
}

func (s *GormBlobStore) Put(ctx context.Context, key string, data []byte) error {
	row := models.SnapshotBlobGorm{Key: key, Data: data, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		s.logger.Error("blob write failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	return nil
}
