package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// UpdateProfileMessage changes the name and or email of a user
type UpdateProfileMessage struct {
	UserID string  `json:"-"`
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
}

func (e UpdateProfileMessage) Type() string { return "user.profile.update" }

// Changes returns the store level changes
func (e UpdateProfileMessage) Changes() ProfileChanges {
	return ProfileChanges{Name: e.Name, Email: e.Email}
}

// Validate checks the payload
func (e UpdateProfileMessage) Validate() error {
	if e.Changes().Empty() {
		return goerrors.New("at least one of name or email is required", goerrors.CategoryValidation)
	}

	if e.Name != nil {
		name := strings.TrimSpace(*e.Name)
		e.Name = &name
	}
	if e.Email != nil {
		email := strings.TrimSpace(*e.Email)
		e.Email = &email
	}

	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.NilOrNotEmpty, validation.Length(2, 50)),
		validation.Field(&e.Email, validation.NilOrNotEmpty, is.Email),
	)
}

// UpdateProfileHandler applies self service profile changes
type UpdateProfileHandler struct {
	repo RepositoryManager
}

// NewUpdateProfileHandler returns a handler bound to repo
func NewUpdateProfileHandler(repo RepositoryManager) *UpdateProfileHandler {
	return &UpdateProfileHandler{repo: repo}
}

// Execute updates the profile described by event
func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
	}

	if err := event.Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	if event.Email != nil {
		taken, err := h.repo.Users().EmailTaken(ctx, *event.Email, event.UserID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	return h.repo.Users().UpdateProfile(ctx, event.UserID, event.Changes())
}
