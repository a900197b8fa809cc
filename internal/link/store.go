package link

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bankfeed-sync-go/internal/logger"
	"bankfeed-sync-go/internal/models"
)

// Store persists the install-identity to remote-user mapping.
type Store interface {
	RemoteUserID(ctx context.Context, installIdentity string) (string, error)
	Upsert(ctx context.Context, installIdentity, remoteUserID string) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// RemoteUserID looks up the stored mapping. Both a missing row and a missing
// table mean "no link yet" and return an empty id without error; the table
// may simply not be migrated yet on a fresh install. Any other persistence
// error propagates.
func (s *GormStore) RemoteUserID(ctx context.Context, installIdentity string) (string, error) {
	var lu models.LinkedUser
	err := s.db.WithContext(ctx).Where("install_identity = ?", installIdentity).First(&lu).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if isUndefinedTable(err) {
		log := logger.FromContext(ctx)
		log.Info().Msg("linked_users table not provisioned yet, treating as no link")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return lu.RemoteUserID, nil
}

// Upsert writes the mapping atomically keyed on install identity, so two
// concurrent create-if-missing calls cannot produce duplicate rows. Unlike
// the read path, a missing table fails here: writes are expected to happen
// after migrations have run.
func (s *GormStore) Upsert(ctx context.Context, installIdentity, remoteUserID string) error {
	lu := models.LinkedUser{
		InstallIdentity: installIdentity,
		RemoteUserID:    remoteUserID,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "install_identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"remote_user_id", "updated_at"}),
	}).Create(&lu).Error
}

// isUndefinedTable reports whether err is Postgres SQLSTATE 42P01.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
