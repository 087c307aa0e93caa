package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunUsers is the SQL backed UserStore
type BunUsers struct {
	repo repository.Repository[*User]
	db   bun.IDB
}

var _ UserStore = (*BunUsers)(nil)

// NewUsersRepository returns a UserStore over db
func NewUsersRepository(db *bun.DB) *BunUsers {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &BunUsers{
		repo: repo,
		db:   db,
	}
}

// GetByID finds a user by its id
func (a *BunUsers) GetByID(ctx context.Context, id string) (*User, error) {
	uid, err := ParseUserID(id)
	if err != nil {
		return nil, err
	}

	record := &User{}
	err = a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", uid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translateUserErr(err, "failed to get user by id")
	}
	return record, nil
}

// GetByEmail finds a user by email, case insensitive
func (a *BunUsers) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translateUserErr(err, "failed to get user by email")
	}
	return record, nil
}

// EmailTaken reports whether another user than excludeID owns email
func (a *BunUsers) EmailTaken(ctx context.Context, email string, excludeID string) (bool, error) {
	q := a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email))

	if excludeID != "" {
		if uid, err := uuid.Parse(excludeID); err == nil {
			q = q.Where("?TableAlias.id != ?", uid)
		}
	}

	exists, err := q.Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check email")
	}
	return exists, nil
}

// Create inserts the user. Email collisions return ErrDuplicateEmail.
func (a *BunUsers) Create(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user must not be nil", errors.CategoryBadInput)
	}
	user.Email = NormalizeEmail(user.Email)

	record, err := a.repo.CreateTx(ctx, a.db, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}
	return record, nil
}

// UpdateProfile applies changes to the user identified by id
func (a *BunUsers) UpdateProfile(ctx context.Context, id string, changes ProfileChanges) (*User, error) {
	user, err := a.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes.Apply(user)

	res, err := a.db.NewUpdate().
		Model(user).
		Column("name", "email", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// Delete removes the user permanently
func (a *BunUsers) Delete(ctx context.Context, id string) error {
	uid, err := ParseUserID(id)
	if err != nil {
		return err
	}

	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", uid).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns a page of users, newest first, plus the total count
func (a *BunUsers) List(ctx context.Context, offset, limit int) ([]*User, int, error) {
	var records []*User
	total, err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}
	return records, total, nil
}

func translateUserErr(err error, msg string) error {
	if repository.IsRecordNotFound(err) {
		return ErrUserNotFound
	}
	return errors.Wrap(err, errors.CategoryInternal, msg)
}
