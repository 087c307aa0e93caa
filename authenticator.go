package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// AuthResult is returned by register, login and refresh
type AuthResult struct {
	User         UserView `json:"user"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
}

// Auther implements the credential and token flows
type Auther struct {
	repo           RepositoryManager
	provider       IdentityProvider
	tokenService   TokenService
	register       *RegisterUserHandler
	refreshTTL     time.Duration
	useHashid      bool
	logger         Logger
	loggerProvider LoggerProvider
	activitySink   ActivitySink
	now            func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, opts Config) *Auther {
	loggerProvider, logger := ResolveLogger("auth.authenticator", nil, nil)

	refreshTTL := opts.GetRefreshTokenExpiration()
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenExpiration
	}

	return &Auther{
		repo:           repo,
		provider:       NewUserProvider(repo.Users()),
		tokenService:   NewTokenServiceFromConfig(opts, logger),
		register:       NewRegisterUserHandler(repo),
		refreshTTL:     refreshTTL,
		useHashid:      opts.GetUseHashid(),
		logger:         logger,
		loggerProvider: loggerProvider,
		activitySink:   noopActivitySink{},
		now:            time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.loggerProvider, s.logger = ResolveLogger("auth.authenticator", s.loggerProvider, logger)
	return s
}

// WithLoggerProvider derives scoped loggers for the authenticator and its provider
func (s *Auther) WithLoggerProvider(provider LoggerProvider) *Auther {
	s.loggerProvider, s.logger = ResolveLogger("auth.authenticator", provider, nil)
	if up, ok := s.provider.(*UserProvider); ok {
		up.WithLoggerProvider(provider)
	}
	return s
}

// WithIdentityProvider replaces the default store backed provider
func (s *Auther) WithIdentityProvider(provider IdentityProvider) *Auther {
	if provider != nil {
		s.provider = provider
	}
	return s
}

// WithTokenService replaces the token service built from Config
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Register creates the user and issues a token pair
func (s *Auther) Register(ctx context.Context, msg RegisterUserMessage) (*AuthResult, error) {
	msg.UseHashid = msg.UseHashid || s.useHashid
	msg.Role = ""

	user, err := s.register.Execute(ctx, msg)
	if err != nil {
		if HasTextCode(err, TextCodeDuplicateEmail) {
			s.logger.Info("registration rejected, duplicate email", "email", NormalizeEmail(msg.Email))
		}
		return nil, err
	}

	res, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID.String())
	s.emit(ctx, ActivityEventRegister, user.ID.String(), user.ID.String(), map[string]any{
		"email": user.Email,
	})

	return res, nil
}

// Login verifies credentials and issues a token pair
func (s *Auther) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Warn("login failed", "email", NormalizeEmail(email), "error", err)
		s.emit(ctx, ActivityEventLoginFailure, "", "", map[string]any{
			"email": NormalizeEmail(email),
			"error": err.Error(),
		})
		return nil, err
	}

	user, err := s.userFromIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	res, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventLoginSuccess, user.ID.String(), user.ID.String(), nil)

	return res, nil
}

// Verify decodes and checks an access token
func (s *Auther) Verify(token string) (AuthClaims, error) {
	return s.tokenService.Validate(token)
}

// ResolveUser verifies the token and loads the active user it was issued for
func (s *Auther) ResolveUser(ctx context.Context, token string) (*User, AuthClaims, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, nil, err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, claims.UserID())
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userFromIdentity(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	return user, claims, nil
}

// Refresh rotates a refresh token into a new token pair
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidRefreshToken
	}

	hash := HashRefreshToken(refreshToken)
	record, err := s.repo.RefreshTokens().GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	if !record.Usable(s.now()) {
		return nil, ErrInvalidRefreshToken
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, record.UserID.String())
	if err != nil {
		if HasTextCode(err, TextCodeUserInactive) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	user, err := s.userFromIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	// A concurrent refresh with the same token may have rotated it after
	// GetByHash; only the call that flips revoked_at gets a new pair.
	revoked, err := s.repo.RefreshTokens().Revoke(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !revoked {
		return nil, ErrInvalidRefreshToken
	}

	res, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventTokenRefresh, user.ID.String(), user.ID.String(), nil)

	return res, nil
}

// Logout revokes refreshToken when given. Access tokens stay valid until
// they expire.
func (s *Auther) Logout(ctx context.Context, actorID, refreshToken string) error {
	if refreshToken != "" {
		if _, err := s.repo.RefreshTokens().Revoke(ctx, HashRefreshToken(refreshToken)); err != nil {
			return err
		}
	}

	s.emit(ctx, ActivityEventLogout, actorID, actorID, map[string]any{
		"revoked": refreshToken != "",
	})
	return nil
}

func (s *Auther) issue(ctx context.Context, user *User) (*AuthResult, error) {
	token, err := s.tokenService.Generate(NewIdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	raw, hash, err := NewRefreshTokenValue()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.repo.RefreshTokens().Create(ctx, record); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user.Projection(),
		Token:        token,
		RefreshToken: raw,
	}, nil
}

func (s *Auther) userFromIdentity(ctx context.Context, identity Identity) (*User, error) {
	if identity == nil {
		return nil, ErrIdentityNotFound
	}
	if user, ok := UserFromIdentity(identity); ok {
		return user, nil
	}

	user, err := s.repo.Users().GetByID(ctx, identity.ID())
	if err != nil {
		if HasTextCode(err, TextCodeUserNotFound) {
			return nil, ErrUserInactive
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, actorID, userID string, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType:  eventType,
		ActorID:    actorID,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now().UTC(),
	})
}
