package auth

import (
	"context"
	"math"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination describes a page of a listing
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalUsers  int  `json:"totalUsers"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// UserPage is the result of listing users
type UserPage struct {
	Users      []UserView `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// NormalizePage replaces invalid page and limit values with defaults.
// page is capped so the listing offset (page-1)*limit fits in an int.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}

// UserService implements the user CRUD operations
type UserService struct {
	repo           RepositoryManager
	updateProfile  *UpdateProfileHandler
	logger         Logger
	loggerProvider LoggerProvider
	activitySink   ActivitySink
}

// NewUserService returns a service bound to repo
func NewUserService(repo RepositoryManager) *UserService {
	loggerProvider, logger := ResolveLogger("auth.users", nil, nil)
	return &UserService{
		repo:           repo,
		updateProfile:  NewUpdateProfileHandler(repo),
		logger:         logger,
		loggerProvider: loggerProvider,
		activitySink:   noopActivitySink{},
	}
}

func (s *UserService) WithLogger(logger Logger) *UserService {
	s.loggerProvider, s.logger = ResolveLogger("auth.users", s.loggerProvider, logger)
	return s
}

// WithLoggerProvider derives the service logger from provider
func (s *UserService) WithLoggerProvider(provider LoggerProvider) *UserService {
	s.loggerProvider, s.logger = ResolveLogger("auth.users", provider, nil)
	return s
}

// WithActivitySink configures an ActivitySink for emitting user events.
func (s *UserService) WithActivitySink(sink ActivitySink) *UserService {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// List returns a page of users, newest first
func (s *UserService) List(ctx context.Context, page, limit int) (*UserPage, error) {
	page, limit = NormalizePage(page, limit)

	records, total, err := s.repo.Users().List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	users := make([]UserView, 0, len(records))
	for _, u := range records {
		users = append(users, u.Projection())
	}

	return &UserPage{
		Users: users,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalUsers:  total,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	}, nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.Users().GetByID(ctx, id)
}

// UpdateProfile changes the profile of the acting user
func (s *UserService) UpdateProfile(ctx context.Context, msg UpdateProfileMessage) (*User, error) {
	user, err := s.updateProfile.Execute(ctx, msg)
	if err != nil {
		return nil, err
	}

	fields := []string{}
	if msg.Name != nil {
		fields = append(fields, "name")
	}
	if msg.Email != nil {
		fields = append(fields, "email")
	}

	s.emit(ctx, ActivityEventUserUpdated, msg.UserID, user.ID.String(), map[string]any{
		"fields": fields,
	})

	return user, nil
}

// Delete removes the user identified by id. actorID may not delete itself.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	user, err := s.repo.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.ID.String() == actorID {
		return ErrSelfDeletion
	}

	if err := s.repo.Users().Delete(ctx, user.ID.String()); err != nil {
		return err
	}

	if err := s.repo.RefreshTokens().RevokeAllForUser(ctx, user.ID.String()); err != nil {
		s.logger.Warn("failed to revoke refresh tokens of deleted user", "user_id", user.ID.String(), "error", err)
	}

	s.logger.Info("user deleted", "user_id", user.ID.String(), "actor_id", actorID)
	s.emit(ctx, ActivityEventUserDeleted, actorID, user.ID.String(), map[string]any{
		"email": user.Email,
	})

	return nil
}

func (s *UserService) emit(ctx context.Context, eventType ActivityEventType, actorID, userID string, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType:  eventType,
		ActorID:    actorID,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	})
}
