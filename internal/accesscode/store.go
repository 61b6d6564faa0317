package accesscode

import (
	"context"

	"github.com/hospitalhub/accessgate/internal/model"
)

// Validation failure reasons shown to the user.
const (
	ReasonRequired = "required"
	ReasonInvalid  = "invalid or expired"
	ReasonExpired  = "expired (codes are valid for 1 hour only)"
)

// ValidationResult is the outcome of a Validate call. Code is set only when
// Valid is true.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Reason string            `json:"reason,omitempty"`
	Code   *model.AccessCode `json:"code,omitempty"`
}

func Accepted(code *model.AccessCode) *ValidationResult {
	return &ValidationResult{Valid: true, Code: code}
}

func Rejected(reason string) *ValidationResult {
	return &ValidationResult{Valid: false, Reason: reason}
}

// Store issues, validates, lists and revokes access codes. Every state change
// is durable before a successful return.
type Store interface {
	Generate(ctx context.Context, issuedBy, note string) (*model.AccessCode, error)
	Validate(ctx context.Context, input string) (*ValidationResult, error)
	List(ctx context.Context) ([]model.AccessCode, error)
	ListValid(ctx context.Context) ([]model.AccessCode, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Validator is the part of Store the challenge needs.
type Validator interface {
	Validate(ctx context.Context, input string) (*ValidationResult, error)
}
