package accesscode

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/model"
)

const maxGenerateAttempts = 10

// MemoryStore keeps codes in process memory. It is meant for tests and local
// development; it has no durability beyond the process.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]*model.AccessCode
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes: make(map[string]*model.AccessCode),
		now:   time.Now,
	}
}

// WithClock replaces the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemoryStore) Generate(ctx context.Context, issuedBy, note string) (*model.AccessCode, error) {
	if issuedBy == "" {
		return nil, apperrors.Unauthorized("Administrator authentication required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for attempts := 0; attempts < maxGenerateAttempts; attempts++ {
		candidate, err := Generate()
		if err != nil {
			return nil, err
		}
		if s.findActiveLocked(candidate) == nil {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, apperrors.Conflict("could not allocate a unique access code")
	}

	now := s.now()
	ac := &model.AccessCode{
		ID:        uuid.NewString(),
		Code:      code,
		CreatedBy: issuedBy,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
		Note:      note,
		IsActive:  true,
	}
	s.codes[ac.ID] = ac

	out := *ac
	return &out, nil
}

func (s *MemoryStore) Validate(ctx context.Context, input string) (*ValidationResult, error) {
	code := Normalize(input)
	if code == "" {
		return Rejected(ReasonRequired), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ac := s.findActiveLocked(code)
	if ac == nil {
		return Rejected(ReasonInvalid), nil
	}

	now := s.now()
	if ac.IsExpiredAt(now) {
		ac.IsActive = false
		return Rejected(ReasonExpired), nil
	}

	ac.UsageCount++
	used := now
	ac.LastUsed = &used

	out := *ac
	return Accepted(&out), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]model.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectLocked(func(*model.AccessCode) bool { return true }), nil
}

func (s *MemoryStore) ListValid(ctx context.Context) ([]model.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	return s.collectLocked(func(ac *model.AccessCode) bool { return ac.IsValidAt(now) }), nil
}

func (s *MemoryStore) Deactivate(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ac, ok := s.codes[id]
	if !ok {
		return false, nil
	}
	ac.IsActive = false
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[id]; !ok {
		return false, nil
	}
	delete(s.codes, id)
	return true, nil
}

func (s *MemoryStore) findActiveLocked(code string) *model.AccessCode {
	for _, ac := range s.codes {
		if ac.IsActive && ac.Code == code {
			return ac
		}
	}
	return nil
}

// collectLocked returns copies, newest first.
func (s *MemoryStore) collectLocked(keep func(*model.AccessCode) bool) []model.AccessCode {
	out := make([]model.AccessCode, 0, len(s.codes))
	for _, ac := range s.codes {
		if keep(ac) {
			out = append(out, *ac)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
