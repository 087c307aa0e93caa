package persistence

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	auth "github.com/goliatone/go-auth-starter"
)

// SeedUser is one entry of the seed file
type SeedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Active   *bool  `yaml:"active"`
}

type usersFile struct {
	Users []SeedUser `yaml:"users"`
}

// SeedFromFile creates the users listed in the YAML file at path when
// their email is not registered yet. It returns how many were created.
func SeedFromFile(ctx context.Context, store auth.UserStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "read seed file")
	}

	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return 0, errors.Wrap(err, errors.CategoryBadInput, "parse seed file")
	}

	return SeedUsers(ctx, store, uf.Users)
}

// SeedUsers creates the missing users
func SeedUsers(ctx context.Context, store auth.UserStore, users []SeedUser) (int, error) {
	created := 0
	for _, u := range users {
		if u.Email == "" || u.Password == "" {
			continue
		}

		if _, err := store.GetByEmail(ctx, u.Email); err == nil {
			continue
		} else if !auth.HasTextCode(err, auth.TextCodeUserNotFound) {
			return created, err
		}

		role, ok := auth.ParseRole(u.Role)
		if !ok {
			return created, errors.New(fmt.Sprintf("seed user %s: invalid role %q", u.Email, u.Role), errors.CategoryValidation).
				WithMetadata(map[string]any{"email": u.Email, "role": u.Role})
		}

		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return created, err
		}

		user := auth.NewUser(u.Name, u.Email, hash)
		user.Role = role
		if u.Active != nil {
			user.IsActive = *u.Active
		}

		if _, err := store.Create(ctx, user); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
