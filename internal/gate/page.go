package gate

import (
	"github.com/rs/zerolog/log"

	"github.com/hospitalhub/accessgate/internal/accesscode"
	"github.com/hospitalhub/accessgate/internal/model"
)

// Page wires one Interceptor to one Challenge for a resource screen.
type Page[T any] struct {
	Resource    model.Resource
	Interceptor *Interceptor[T]
	Challenge   *Challenge
}

func NewPage[T any](
	resource model.Resource,
	user func() model.CurrentUser,
	validator accesscode.Validator,
	dispatch Dispatch[T],
) *Page[T] {
	p := &Page[T]{
		Resource:    resource,
		Interceptor: NewInterceptor(user, dispatch),
		Challenge:   NewChallenge(validator),
	}

	p.Interceptor.OnChallenge(p.Challenge.Open)
	p.Challenge.OnSuccess(func(result *accesscode.ValidationResult) {
		if err := p.Interceptor.Succeed(); err != nil {
			log.Warn().Err(err).Str("resource", string(resource)).Msg("challenge passed with nothing pending")
		}
	})
	p.Challenge.OnCancel(p.Interceptor.Cancel)
	return p
}

func (p *Page[T]) Create() error {
	return p.Interceptor.Create()
}

func (p *Page[T]) Edit(subject T) error {
	return p.Interceptor.Edit(subject)
}

func (p *Page[T]) Delete(subject T) error {
	return p.Interceptor.Delete(subject)
}
