package gate

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hospitalhub/accessgate/internal/accesscode"
)

// TransportErrorMessage is shown when the store cannot be reached.
const TransportErrorMessage = "Failed to validate access code. Please try again."

var (
	// ErrNotSubmittable is returned when the input is not a complete code or a
	// validation is already in flight. The store is not called.
	ErrNotSubmittable = errors.New("access code is not ready to submit")

	// ErrChallengeCancelled is returned by a Submit whose challenge was
	// cancelled while the validation was in flight. Its result is discarded.
	ErrChallengeCancelled = errors.New("challenge cancelled")
)

// Challenge is the headless model of the access code prompt. Every store
// failure ends up as a displayed message; only a successful validation is
// reported to OnSuccess.
type Challenge struct {
	mu        sync.Mutex
	validator accesscode.Validator
	onSuccess func(*accesscode.ValidationResult)
	onCancel  func()

	open     bool
	input    string
	errMsg   string
	inFlight bool
	seq      uint64
}

func NewChallenge(validator accesscode.Validator) *Challenge {
	return &Challenge{validator: validator}
}

func (c *Challenge) OnSuccess(fn func(*accesscode.ValidationResult)) *Challenge {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSuccess = fn
	return c
}

func (c *Challenge) OnCancel(fn func()) *Challenge {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCancel = fn
	return c
}

// Open shows the prompt. Input typed earlier is kept.
func (c *Challenge) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
}

func (c *Challenge) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SetInput stores raw in canonical form.
func (c *Challenge) SetInput(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = accesscode.Normalize(raw)
}

func (c *Challenge) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Error is the inline message from the last failed submission.
func (c *Challenge) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Challenge) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Challenge) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *Challenge) canSubmitLocked() bool {
	return !c.inFlight && accesscode.IsWellFormed(c.input)
}

// Submit validates the current input. It reports whether the code was
// accepted; rejections and transport failures are reported through Error
// with the input retained.
func (c *Challenge) Submit(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if !c.canSubmitLocked() {
		c.mu.Unlock()
		return false, ErrNotSubmittable
	}
	c.inFlight = true
	c.errMsg = ""
	c.seq++
	seq := c.seq
	input := c.input
	c.mu.Unlock()

	result, err := c.validator.Validate(ctx, input)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return false, ErrChallengeCancelled
	}
	c.inFlight = false

	if err != nil {
		c.errMsg = TransportErrorMessage
		c.mu.Unlock()
		log.Warn().Err(err).Msg("access code validation failed")
		return false, nil
	}

	if result == nil || !result.Valid {
		reason := accesscode.ReasonInvalid
		if result != nil && result.Reason != "" {
			reason = result.Reason
		}
		c.errMsg = reason
		c.mu.Unlock()
		return false, nil
	}

	c.input = ""
	c.errMsg = ""
	c.open = false
	onSuccess := c.onSuccess
	c.mu.Unlock()

	if onSuccess != nil {
		onSuccess(result)
	}
	return true, nil
}

// Cancel clears and closes the prompt and abandons any validation in flight.
func (c *Challenge) Cancel() {
	c.mu.Lock()
	c.seq++
	c.inFlight = false
	c.input = ""
	c.errMsg = ""
	c.open = false
	onCancel := c.onCancel
	c.mu.Unlock()

	if onCancel != nil {
		onCancel()
	}
}
