package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hospitalhub/accessgate/internal/accesscode"
	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/metrics"
	"github.com/hospitalhub/accessgate/internal/model"
	"github.com/hospitalhub/accessgate/internal/repository"
)

const testCodeID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"

type mockAccessCodeRepo struct {
	mock.Mock
}

func (m *mockAccessCodeRepo) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) FindByID(ctx context.Context, id string) (*model.AccessCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) FindActiveByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) FindAll(ctx context.Context) ([]model.AccessCode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) FindValid(ctx context.Context, now time.Time) ([]model.AccessCode, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) RecordUse(ctx context.Context, id string, now time.Time) (*model.AccessCode, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccessCodeRepo) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccessCodeRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Time) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Get(1).(time.Time)
}

var issuedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(repo *mockAccessCodeRepo, limiter Limiter, now time.Time) *AccessCodeService {
	svc := NewAccessCodeService(repo, limiter, 20, time.Hour, nil)
	return svc.WithClock(func() time.Time { return now })
}

func activeCode() *model.AccessCode {
	return &model.AccessCode{
		ID:        testCodeID,
		Code:      "ABCD-EFGH-JKLM",
		CreatedBy: "alice",
		CreatedAt: issuedAt,
		ExpiresAt: issuedAt.Add(time.Hour),
		IsActive:  true,
	}
}

func TestAccessCodeService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a well-formed code expiring in one hour", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		repo.On("Create", ctx, mock.MatchedBy(func(p model.CreateAccessCodeParams) bool {
			return accesscode.IsWellFormed(p.Code) &&
				p.CreatedBy == "alice" &&
				p.Note == "ward 3" &&
				p.CreatedAt.Equal(issuedAt) &&
				p.ExpiresAt.Equal(issuedAt.Add(time.Hour))
		})).Return(activeCode(), nil)

		code, err := svc.Generate(ctx, "alice", "ward 3")
		require.NoError(t, err)
		assert.Equal(t, testCodeID, code.ID)
		repo.AssertExpectations(t)
	})

	t.Run("requires an issuer", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		_, err := svc.Generate(ctx, "", "")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects long notes", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		long := make([]rune, maxNoteLength+1)
		for i := range long {
			long[i] = 'x'
		}
		_, err := svc.Generate(ctx, "alice", string(long))
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	})

	t.Run("retries on collision", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		repo.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicateCode).Twice()
		repo.On("Create", ctx, mock.Anything).Return(activeCode(), nil).Once()

		code, err := svc.Generate(ctx, "alice", "")
		require.NoError(t, err)
		assert.NotNil(t, code)
		repo.AssertNumberOfCalls(t, "Create", 3)
	})

	t.Run("gives up after repeated collisions", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		repo.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicateCode)

		_, err := svc.Generate(ctx, "alice", "")
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
		assert.ErrorIs(t, err, repository.ErrDuplicateCode)
		repo.AssertNumberOfCalls(t, "Create", maxCodeGenerationAttempts)
	})

	t.Run("enforces the per-admin limit", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		limiter := new(mockLimiter)
		svc := newTestService(repo, limiter, issuedAt)

		limiter.On("CheckLimit", ctx, "code_gen:alice", 20, time.Hour).
			Return(false, issuedAt.Add(30*time.Second))

		_, err := svc.Generate(ctx, "alice", "")
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeRateLimitExceeded, appErr.Code)
		assert.Equal(t, map[string]int{"retryAfter": 30}, appErr.Details)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("wraps database errors", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		repo.On("Create", ctx, mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := svc.Generate(ctx, "alice", "")
		assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.GetCode(err))
	})
}

func TestAccessCodeService_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input is required", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		for _, input := range []string{"", "   ", "--"} {
			result, err := svc.Validate(ctx, input)
			require.NoError(t, err)
			assert.False(t, result.Valid)
			assert.Equal(t, accesscode.ReasonRequired, result.Reason)
		}
		repo.AssertNotCalled(t, "FindActiveByCode", mock.Anything, mock.Anything)
	})

	t.Run("malformed input is invalid without a lookup", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		result, err := svc.Validate(ctx, "ABC")
		require.NoError(t, err)
		assert.Equal(t, accesscode.ReasonInvalid, result.Reason)
		repo.AssertNotCalled(t, "FindActiveByCode", mock.Anything, mock.Anything)
	})

	t.Run("unknown code is invalid", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		repo.On("FindActiveByCode", ctx, "ZZZZ-ZZZZ-ZZZZ").Return(nil, nil)

		result, err := svc.Validate(ctx, "zzzzzzzzzzzz")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, accesscode.ReasonInvalid, result.Reason)
	})

	t.Run("normalizes before lookup and records use", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		now := issuedAt.Add(59 * time.Minute)
		svc := newTestService(repo, nil, now)

		used := activeCode()
		used.UsageCount = 1
		used.LastUsed = &now
		repo.On("FindActiveByCode", ctx, "ABCD-EFGH-JKLM").Return(activeCode(), nil)
		repo.On("RecordUse", ctx, testCodeID, now).Return(used, nil)

		result, err := svc.Validate(ctx, " abcd efgh jklm ")
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Equal(t, 1, result.Code.UsageCount)
		repo.AssertExpectations(t)
	})

	t.Run("code stays reusable within the hour", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		now := issuedAt.Add(10 * time.Minute)
		svc := newTestService(repo, nil, now)

		repo.On("FindActiveByCode", ctx, "ABCD-EFGH-JKLM").Return(activeCode(), nil)
		repo.On("RecordUse", ctx, testCodeID, now).Return(activeCode(), nil)

		for i := 0; i < 3; i++ {
			result, err := svc.Validate(ctx, "ABCD-EFGH-JKLM")
			require.NoError(t, err)
			assert.True(t, result.Valid)
		}
		repo.AssertNumberOfCalls(t, "RecordUse", 3)
		repo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
	})

	t.Run("expired code is deactivated and rejected", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt.Add(61*time.Minute))

		repo.On("FindActiveByCode", ctx, "ABCD-EFGH-JKLM").Return(activeCode(), nil)
		repo.On("Deactivate", ctx, testCodeID).Return(true, nil)

		result, err := svc.Validate(ctx, "ABCD-EFGH-JKLM")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, accesscode.ReasonExpired, result.Reason)
		repo.AssertNotCalled(t, "RecordUse", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("expiry is exact at one hour", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt.Add(time.Hour))

		repo.On("FindActiveByCode", ctx, "ABCD-EFGH-JKLM").Return(activeCode(), nil)
		repo.On("Deactivate", ctx, testCodeID).Return(true, nil)

		result, err := svc.Validate(ctx, "ABCD-EFGH-JKLM")
		require.NoError(t, err)
		assert.Equal(t, accesscode.ReasonExpired, result.Reason)
	})

	t.Run("failed expiry write is an error", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt.Add(2*time.Hour))

		repo.On("FindActiveByCode", ctx, "ABCD-EFGH-JKLM").Return(activeCode(), nil)
		repo.On("Deactivate", ctx, testCodeID).Return(false, errors.New("disk full"))

		result, err := svc.Validate(ctx, "ABCD-EFGH-JKLM")
		assert.Nil(t, result)
		assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.GetCode(err))
	})

	t.Run("code revoked mid-validation is invalid", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		now := issuedAt.Add(time.Minute)
		svc := newTestService(repo, nil, now)

		repo.On("FindActiveByCode", ctx, "ABCD-EFGH-JKLM").Return(activeCode(), nil)
		repo.On("RecordUse", ctx, testCodeID, now).Return(nil, nil)

		result, err := svc.Validate(ctx, "ABCD-EFGH-JKLM")
		require.NoError(t, err)
		assert.Equal(t, accesscode.ReasonInvalid, result.Reason)
	})

	t.Run("lookup failure is an error", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		repo.On("FindActiveByCode", ctx, "ABCD-EFGH-JKLM").Return(nil, errors.New("timeout"))

		_, err := svc.Validate(ctx, "ABCD-EFGH-JKLM")
		assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.GetCode(err))
	})
}

func TestAccessCodeService_ValidateMetrics(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAccessCodeRepo)
	m := metrics.New(prometheus.NewRegistry())
	svc := NewAccessCodeService(repo, nil, 20, time.Hour, m).
		WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) })

	repo.On("FindActiveByCode", ctx, "ABCD-EFGH-JKLM").Return(activeCode(), nil)
	repo.On("Deactivate", ctx, testCodeID).Return(true, nil)

	_, err := svc.Validate(ctx, "")
	require.NoError(t, err)
	_, err = svc.Validate(ctx, "ABCD-EFGH-JKLM")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Validations.WithLabelValues(metrics.OutcomeRequired)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Validations.WithLabelValues(metrics.OutcomeExpired)))
}

func TestAccessCodeService_Lists(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAccessCodeRepo)
	svc := newTestService(repo, nil, issuedAt)

	all := []model.AccessCode{*activeCode()}
	repo.On("FindAll", ctx).Return(all, nil)
	repo.On("FindValid", ctx, issuedAt).Return([]model.AccessCode{}, nil)

	codes, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, codes, 1)

	valid, err := svc.ListValid(ctx)
	require.NoError(t, err)
	assert.Empty(t, valid)
}

func TestAccessCodeService_DeactivateAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed id is not found", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)

		ok, err := svc.Deactivate(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = svc.Delete(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("deactivate existing", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)
		repo.On("Deactivate", ctx, testCodeID).Return(true, nil)

		ok, err := svc.Deactivate(ctx, testCodeID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("delete missing", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)
		repo.On("Delete", ctx, testCodeID).Return(false, nil)

		ok, err := svc.Delete(ctx, testCodeID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(mockAccessCodeRepo)
		svc := newTestService(repo, nil, issuedAt)
		repo.On("Delete", ctx, testCodeID).Return(false, errors.New("boom"))

		_, err := svc.Delete(ctx, testCodeID)
		assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.GetCode(err))
	})
}

func TestAccessCodeService_SweepExpired(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAccessCodeRepo)
	svc := newTestService(repo, nil, issuedAt)

	repo.On("DeactivateExpired", ctx, issuedAt).Return(int64(2), nil)

	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
