package jwtware

import (
	"strings"

	"github.com/goliatone/go-router"
)

// RolesConfig configures RequireRoles
type RolesConfig struct {
	ContextKey   string
	ErrorHandler router.ErrorHandler
}

// RequireRoles only lets through principals whose role is in roles.
// It must run after New.
func RequireRoles(roles []string, config ...RolesConfig) router.MiddlewareFunc {
	var cfg RolesConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultRolesErrorHandler
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			principal, ok := c.Locals(cfg.ContextKey).(Principal)
			if !ok || principal == nil {
				return cfg.ErrorHandler(c, ErrNotAuthenticated)
			}

			role := principal.GetRole()
			for _, allowed := range roles {
				if strings.EqualFold(role, allowed) {
					return next(c)
				}
			}

			return cfg.ErrorHandler(c, ErrRoleNotAllowed)
		}
	}
}

func defaultRolesErrorHandler(c router.Context, err error) error {
	if err == ErrNotAuthenticated {
		return c.JSON(router.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "Not authorized",
		})
	}
	return c.JSON(router.StatusForbidden, map[string]any{
		"success": false,
		"message": "Not authorized for this resource",
	})
}
