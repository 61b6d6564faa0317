package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hospitalhub/accessgate/internal/accesscode"
	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/metrics"
	"github.com/hospitalhub/accessgate/internal/model"
	"github.com/hospitalhub/accessgate/internal/repository"
	"github.com/hospitalhub/accessgate/internal/util"
)

const (
	maxCodeGenerationAttempts = 10
	maxNoteLength             = 500
	codeGenerationKeyPrefix   = "code_gen"
)

// Limiter is satisfied by RateLimiter.
type Limiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Time)
}

// AccessCodeService is the durable access code store backed by PostgreSQL.
type AccessCodeService struct {
	repo      repository.AccessCodeRepository
	limiter   Limiter
	genLimit  int
	genWindow time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
}

var _ accesscode.Store = (*AccessCodeService)(nil)

// NewAccessCodeService creates the store. limiter may be nil to disable the
// per-admin generation limit.
func NewAccessCodeService(
	repo repository.AccessCodeRepository,
	limiter Limiter,
	genLimit int,
	genWindow time.Duration,
	m *metrics.Metrics,
) *AccessCodeService {
	return &AccessCodeService{
		repo:      repo,
		limiter:   limiter,
		genLimit:  genLimit,
		genWindow: genWindow,
		metrics:   m,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (s *AccessCodeService) WithClock(now func() time.Time) *AccessCodeService {
	s.now = now
	return s
}

// Generate issues a new code valid for one hour.
func (s *AccessCodeService) Generate(ctx context.Context, issuedBy, note string) (*model.AccessCode, error) {
	if issuedBy == "" {
		return nil, apperrors.Unauthorized("Administrator authentication required")
	}
	if utf8.RuneCountInString(note) > maxNoteLength {
		return nil, apperrors.InvalidInput("note", fmt.Sprintf("must be at most %d characters", maxNoteLength))
	}

	if s.limiter != nil {
		key := fmt.Sprintf("%s:%s", codeGenerationKeyPrefix, issuedBy)
		allowed, resetAt := s.limiter.CheckLimit(ctx, key, s.genLimit, s.genWindow)
		if !allowed {
			return nil, apperrors.RateLimitExceeded().WithDetails(map[string]int{
				"retryAfter": retryAfterSeconds(resetAt, s.now()),
			})
		}
	}

	for attempt := 0; attempt < maxCodeGenerationAttempts; attempt++ {
		code, err := accesscode.Generate()
		if err != nil {
			return nil, apperrors.Internal("failed to generate access code")
		}

		now := s.now().UTC()
		created, err := s.repo.Create(ctx, model.CreateAccessCodeParams{
			Code:      code,
			CreatedBy: issuedBy,
			Note:      note,
			CreatedAt: now,
			ExpiresAt: now.Add(accesscode.TTL),
		})
		if errors.Is(err, repository.ErrDuplicateCode) {
			log.Debug().Int("attempt", attempt+1).Msg("access code collision, retrying")
			continue
		}
		if err != nil {
			return nil, apperrors.Database(err)
		}

		s.metrics.CodeGenerated()
		log.Info().
			Str("code_id", created.ID).
			Str("code", util.MaskCode(created.Code)).
			Str("created_by", issuedBy).
			Time("expires_at", created.ExpiresAt).
			Msg("access code generated")
		return created, nil
	}

	return nil, apperrors.Conflict("could not allocate a unique access code").WithCause(repository.ErrDuplicateCode)
}

// Validate checks input against the active codes. A code found past its TTL
// is deactivated before the rejection is returned.
func (s *AccessCodeService) Validate(ctx context.Context, input string) (*accesscode.ValidationResult, error) {
	code := accesscode.Normalize(input)
	if code == "" {
		s.metrics.Validation(metrics.OutcomeRequired)
		return accesscode.Rejected(accesscode.ReasonRequired), nil
	}
	if !accesscode.IsWellFormed(code) {
		s.metrics.Validation(metrics.OutcomeInvalid)
		return accesscode.Rejected(accesscode.ReasonInvalid), nil
	}

	ac, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		s.metrics.Validation(metrics.OutcomeError)
		return nil, apperrors.Database(err)
	}
	if ac == nil {
		s.metrics.Validation(metrics.OutcomeInvalid)
		return accesscode.Rejected(accesscode.ReasonInvalid), nil
	}

	now := s.now().UTC()
	if ac.IsExpiredAt(now) {
		if _, err := s.repo.Deactivate(ctx, ac.ID); err != nil {
			s.metrics.Validation(metrics.OutcomeError)
			return nil, apperrors.Database(err)
		}
		s.metrics.Validation(metrics.OutcomeExpired)
		log.Info().
			Str("code_id", ac.ID).
			Str("code", util.MaskCode(ac.Code)).
			Msg("expired access code deactivated")
		return accesscode.Rejected(accesscode.ReasonExpired), nil
	}

	used, err := s.repo.RecordUse(ctx, ac.ID, now)
	if err != nil {
		s.metrics.Validation(metrics.OutcomeError)
		return nil, apperrors.Database(err)
	}
	if used == nil {
		s.metrics.Validation(metrics.OutcomeInvalid)
		return accesscode.Rejected(accesscode.ReasonInvalid), nil
	}

	s.metrics.Validation(metrics.OutcomeValid)
	return accesscode.Accepted(used), nil
}

func (s *AccessCodeService) List(ctx context.Context) ([]model.AccessCode, error) {
	codes, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return codes, nil
}

func (s *AccessCodeService) ListValid(ctx context.Context) ([]model.AccessCode, error) {
	codes, err := s.repo.FindValid(ctx, s.now().UTC())
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return codes, nil
}

// Deactivate reports false for unknown ids.
func (s *AccessCodeService) Deactivate(ctx context.Context, id string) (bool, error) {
	if !isCodeID(id) {
		return false, nil
	}
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return false, apperrors.Database(err)
	}
	if ok {
		s.metrics.CodeDeactivated()
	}
	return ok, nil
}

// Delete reports false for unknown ids.
func (s *AccessCodeService) Delete(ctx context.Context, id string) (bool, error) {
	if !isCodeID(id) {
		return false, nil
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, apperrors.Database(err)
	}
	if ok {
		s.metrics.CodeDeleted()
	}
	return ok, nil
}

// SweepExpired deactivates every active code whose TTL has elapsed.
func (s *AccessCodeService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	s.metrics.CodesSweptBy(n)
	return n, nil
}

func retryAfterSeconds(resetAt, now time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// isCodeID filters ids Postgres would reject as UUIDs before they reach SQL.
func isCodeID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
