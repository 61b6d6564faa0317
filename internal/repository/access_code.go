package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hospitalhub/accessgate/internal/model"
)

// ErrDuplicateCode is returned by Create when an active code with the same
// value already exists.
var ErrDuplicateCode = errors.New("active access code already exists")

const pqUniqueViolation = "23505"

// AccessCodeRepository handles access code data operations
type AccessCodeRepository interface {
	Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error)
	FindByID(ctx context.Context, id string) (*model.AccessCode, error)
	FindActiveByCode(ctx context.Context, code string) (*model.AccessCode, error)
	FindAll(ctx context.Context) ([]model.AccessCode, error)
	FindValid(ctx context.Context, now time.Time) ([]model.AccessCode, error)
	RecordUse(ctx context.Context, id string, now time.Time) (*model.AccessCode, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type accessCodeRepo struct {
	db *sqlx.DB
}

// NewAccessCodeRepository creates a new access code repository
func NewAccessCodeRepository(db *sqlx.DB) AccessCodeRepository {
	return &accessCodeRepo{db: db}
}

// Create inserts a new active code
func (r *accessCodeRepo) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, `
		INSERT INTO access_codes (code, created_by, note, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.Code, params.CreatedBy, params.Note, params.CreatedAt, params.ExpiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return &code, nil
}

func (r *accessCodeRepo) FindByID(ctx context.Context, id string) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, `SELECT * FROM access_codes WHERE id = $1`, id)
	return HandleNotFound(&code, err)
}

// FindActiveByCode finds an active code by value without checking expiry,
// so the caller can tell "expired" apart from "unknown".
func (r *accessCodeRepo) FindActiveByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	var ac model.AccessCode
	err := r.db.GetContext(ctx, &ac, `
		SELECT * FROM access_codes
		WHERE code = $1 AND is_active
	`, code)
	return HandleNotFound(&ac, err)
}

func (r *accessCodeRepo) FindAll(ctx context.Context) ([]model.AccessCode, error) {
	codes := []model.AccessCode{}
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM access_codes
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *accessCodeRepo) FindValid(ctx context.Context, now time.Time) ([]model.AccessCode, error) {
	codes := []model.AccessCode{}
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM access_codes
		WHERE is_active AND expires_at > $1
		ORDER BY created_at DESC
	`, now)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// RecordUse increments the usage counter of a still-valid code in a single
// statement. It returns nil when the code was deactivated or expired in the
// meantime.
func (r *accessCodeRepo) RecordUse(ctx context.Context, id string, now time.Time) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, `
		UPDATE access_codes
		SET usage_count = usage_count + 1, last_used = $2
		WHERE id = $1 AND is_active AND expires_at > $2
		RETURNING *
	`, id, now)
	return HandleNotFound(&code, err)
}

// Deactivate is idempotent; it reports whether the id exists.
func (r *accessCodeRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE access_codes
		SET is_active = FALSE
		WHERE id = $1
	`, id)
	return affected(result, err)
}

func (r *accessCodeRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM access_codes WHERE id = $1`, id)
	return affected(result, err)
}

// DeactivateExpired flips is_active on codes whose TTL has elapsed.
func (r *accessCodeRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE access_codes
		SET is_active = FALSE
		WHERE is_active AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
