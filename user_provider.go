package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// UserFinder is the read side of the user store the provider needs
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserProvider handles users
type UserProvider struct {
	store     UserFinder
	Validator func(*User) error
	logger    Logger
	provider  LoggerProvider
	dummyOnce *sync.Once
	dummyHash *string
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder) *UserProvider {
	loggerProvider, logger := ResolveLogger("auth.user_provider", nil, nil)
	return &UserProvider{
		store:     store,
		logger:    logger,
		provider:  loggerProvider,
		Validator: defaultValidator,
		dummyOnce: &sync.Once{},
		dummyHash: new(string),
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.provider, u.logger = ResolveLogger("auth.user_provider", u.provider, l)
	return u
}

// WithLoggerProvider overrides the logger provider used by the user provider.
func (u *UserProvider) WithLoggerProvider(provider LoggerProvider) *UserProvider {
	u.provider, u.logger = ResolveLogger("auth.user_provider", provider, nil)
	return u
}

func (u *UserProvider) validate(user *User) error {
	if u.Validator != nil {
		return u.Validator(user)
	}
	return defaultValidator(user)
}

// VerifyIdentity will find the user, compare to the password, and return identity.
// Unknown users, inactive users and wrong passwords all yield ErrInvalidCredentials.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) || HasTextCode(err, TextCodeUserNotFound) {
			// keep timing close to the found path
			_ = ComparePasswordAndHash(password, u.fakeHash())
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	pwdErr := ComparePasswordAndHash(password, user.PasswordHash)

	if !user.IsActive {
		u.logger.Debug("login rejected for inactive user", "user_id", user.ID.String())
		return nil, ErrInvalidCredentials
	}

	if pwdErr != nil {
		if HasTextCode(pwdErr, TextCodeInvalidCreds) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(pwdErr, errors.CategoryInternal, "failed to compare password hash")
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByIdentifier resolves the user behind a token subject.
// Missing or inactive users yield ErrUserInactive.
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByID(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) || HasTextCode(err, TextCodeUserNotFound) || HasTextCode(err, TextCodeInvalidUserID) {
			return nil, ErrUserInactive
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

func (u *UserProvider) fakeHash() string {
	u.dummyOnce.Do(func() {
		*u.dummyHash = RandomPasswordHash()
	})
	return *u.dummyHash
}

func defaultValidator(u *User) error {
	if u.Role.IsValid() {
		return nil
	}
	return errors.New("user has an unknown or invalid role", errors.CategoryAuth).
		WithTextCode("INVALID_ROLE").
		WithCode(errors.CodeUnauthorized).
		WithMetadata(map[string]any{"role": u.Role, "user_id": u.ID.String()})
}
