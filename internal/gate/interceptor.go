package gate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hospitalhub/accessgate/internal/model"
)

// ErrNoPendingAction is returned by Succeed when no challenge is outstanding.
var ErrNoPendingAction = errors.New("no pending action")

type State int

const (
	StateIdle State = iota
	StateAwaitingChallenge
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingChallenge:
		return "awaiting_challenge"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PendingAction is the write the user attempted before being challenged.
// Subject is the zero value for creates.
type PendingAction[T any] struct {
	Kind    model.Operation
	Subject T
}

// Dispatch holds the page's real action handlers. Exactly one of them runs
// per successful gate pass.
type Dispatch[T any] struct {
	OpenCreate        func()
	OpenEdit          func(subject T)
	OpenDeleteConfirm func(subject T)
}

// Interceptor is the per-screen gate state machine. It moves from Idle to
// AwaitingChallenge on a gated attempt and back to Idle on success or cancel.
type Interceptor[T any] struct {
	mu            sync.Mutex
	user          func() model.CurrentUser
	dispatch      Dispatch[T]
	policy        Policy
	showChallenge func()

	state   State
	pending *PendingAction[T]
}

// NewInterceptor creates an interceptor using RequiresAccessCode. user is
// consulted on every attempt.
func NewInterceptor[T any](user func() model.CurrentUser, dispatch Dispatch[T]) *Interceptor[T] {
	return &Interceptor[T]{
		user:     user,
		dispatch: dispatch,
		policy:   RequiresAccessCode,
		state:    StateIdle,
	}
}

// WithPolicy replaces the gating policy.
func (i *Interceptor[T]) WithPolicy(p Policy) *Interceptor[T] {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.policy = p
	return i
}

// OnChallenge registers the hook that surfaces the challenge.
func (i *Interceptor[T]) OnChallenge(show func()) *Interceptor[T] {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.showChallenge = show
	return i
}

// Attempt starts a write. Ungated writes dispatch immediately; gated writes
// are parked until Succeed or Cancel. A new attempt while a challenge is
// open replaces the parked action.
func (i *Interceptor[T]) Attempt(kind model.Operation, subject T) error {
	if !validOperation(kind) {
		return fmt.Errorf("unknown operation %q", kind)
	}

	i.mu.Lock()
	user := i.user()
	if !i.policy(user, kind) {
		i.mu.Unlock()
		log.Debug().Str("operation", string(kind)).Str("role", string(user.Role)).Msg("write not gated")
		i.run(PendingAction[T]{Kind: kind, Subject: subject})
		return nil
	}

	i.pending = &PendingAction[T]{Kind: kind, Subject: subject}
	i.state = StateAwaitingChallenge
	show := i.showChallenge
	i.mu.Unlock()

	log.Debug().Str("operation", string(kind)).Str("role", string(user.Role)).Msg("write gated, awaiting access code")
	if show != nil {
		show()
	}
	return nil
}

func (i *Interceptor[T]) Create() error {
	var zero T
	return i.Attempt(model.OperationCreate, zero)
}

func (i *Interceptor[T]) Edit(subject T) error {
	return i.Attempt(model.OperationUpdate, subject)
}

func (i *Interceptor[T]) Delete(subject T) error {
	return i.Attempt(model.OperationDelete, subject)
}

// Succeed resumes the parked action. It is the only way a gated action
// reaches the dispatch callbacks.
func (i *Interceptor[T]) Succeed() error {
	i.mu.Lock()
	if i.state != StateAwaitingChallenge || i.pending == nil {
		i.mu.Unlock()
		return ErrNoPendingAction
	}
	action := *i.pending
	i.pending = nil
	i.state = StateIdle
	i.mu.Unlock()

	i.run(action)
	return nil
}

// Cancel drops the parked action without running anything.
func (i *Interceptor[T]) Cancel() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.pending != nil {
		log.Debug().Str("operation", string(i.pending.Kind)).Msg("gated write cancelled")
	}
	i.pending = nil
	i.state = StateIdle
}

func (i *Interceptor[T]) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Pending returns a copy of the parked action.
func (i *Interceptor[T]) Pending() (PendingAction[T], bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.pending == nil {
		return PendingAction[T]{}, false
	}
	return *i.pending, true
}

// run is called without the lock held so callbacks may re-enter.
func (i *Interceptor[T]) run(action PendingAction[T]) {
	switch action.Kind {
	case model.OperationCreate:
		if i.dispatch.OpenCreate != nil {
			i.dispatch.OpenCreate()
		}
	case model.OperationUpdate:
		if i.dispatch.OpenEdit != nil {
			i.dispatch.OpenEdit(action.Subject)
		}
	case model.OperationDelete:
		if i.dispatch.OpenDeleteConfirm != nil {
			i.dispatch.OpenDeleteConfirm(action.Subject)
		}
	}
}

func validOperation(op model.Operation) bool {
	for _, o := range model.Operations {
		if o == op {
			return true
		}
	}
	return false
}
