package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hospitalhub/accessgate/internal/model"
	"github.com/hospitalhub/accessgate/internal/repository"
	"github.com/hospitalhub/accessgate/internal/util"
)

// dummyHash keeps the bcrypt cost constant for unknown usernames.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

type AdminService struct {
	sessionRepo   repository.AdminSessionRepository
	users         map[string]string
	sessionSecret string
	sessionTTL    time.Duration
}

// NewAdminService creates the admin authenticator. users maps usernames to
// bcrypt password hashes.
func NewAdminService(
	sessionRepo repository.AdminSessionRepository,
	users map[string]string,
	sessionSecret string,
	sessionTTL time.Duration,
) *AdminService {
	return &AdminService{
		sessionRepo:   sessionRepo,
		users:         users,
		sessionSecret: sessionSecret,
		sessionTTL:    sessionTTL,
	}
}

// Login returns a new session token, or an empty token when the credentials
// do not match.
func (s *AdminService) Login(ctx context.Context, username, password string) (string, error) {
	hash, ok := s.users[username]
	if !ok {
		util.PasswordMatches(dummyHash, password)
		return "", nil
	}
	if !util.PasswordMatches(hash, password) {
		return "", nil
	}

	token, err := util.NewSessionToken()
	if err != nil {
		return "", err
	}

	_, err = s.sessionRepo.Create(ctx, model.CreateAdminSessionParams{
		Username:  username,
		TokenHash: util.SessionTokenHash(s.sessionSecret, token),
		ExpiresAt: time.Now().Add(s.sessionTTL),
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("admin", username).Msg("admin session created")
	return token, nil
}

func (s *AdminService) Logout(ctx context.Context, token string) error {
	tokenHash := util.SessionTokenHash(s.sessionSecret, token)
	return s.sessionRepo.DeleteByTokenHash(ctx, tokenHash)
}

// Authenticate resolves a session token to the admin username.
func (s *AdminService) Authenticate(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	tokenHash := util.SessionTokenHash(s.sessionSecret, token)
	session, err := s.sessionRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		log.Error().Err(err).Msg("admin session lookup failed")
		return "", false
	}
	if session == nil {
		return "", false
	}
	return session.Username, true
}

func (s *AdminService) SessionTTL() time.Duration {
	return s.sessionTTL
}
