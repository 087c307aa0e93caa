package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup       = "header:Authorization"
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
	ErrNotAuthenticated      = errors.New("request is not authenticated")
	ErrRoleNotAllowed        = errors.New("role not allowed for this resource")
)

// AuthClaims interface for structured claims without import cycles
// This mirrors the AuthClaims interface from the auth package
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	HasRole(roles ...string) bool
}

// Principal is the resolved identity stored on the request
type Principal interface {
	GetID() string
	GetRole() string
}

// Resolver turns a raw token into the current principal
type Resolver interface {
	Resolve(ctx context.Context, token string) (Principal, AuthClaims, error)
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(ctx context.Context, token string) (Principal, AuthClaims, error)

// Resolve implements Resolver
func (f ResolverFunc) Resolve(ctx context.Context, token string) (Principal, AuthClaims, error) {
	return f(ctx, token)
}

// ValidationListener is invoked after a token has been resolved but before the handler runs.
type ValidationListener func(c router.Context, principal Principal, claims AuthClaims) error

type Config struct {
	Filter       func(router.Context) bool
	ErrorHandler router.ErrorHandler
	// Resolver is required
	Resolver    Resolver
	ContextKey  string
	ClaimsKey   string
	TokenLookup string
	AuthScheme  string

	// ContextEnricher is an optional function to propagate the principal to the
	// standard Go context returned by c.Context().
	ContextEnricher func(c context.Context, principal Principal, claims AuthClaims) context.Context

	ValidationListeners []ValidationListener
}

// New returns the protect middleware: it requires a token, resolves it
// and stores the principal under ContextKey.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if cfg.Filter != nil && cfg.Filter(c) {
				return next(c)
			}

			raw, err := ExtractRawTokenFromContext(c, extractors)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			principal, claims, err := cfg.Resolver.Resolve(c.Context(), raw)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			if principal == nil {
				return cfg.ErrorHandler(c, ErrNotAuthenticated)
			}

			if err := cfg.runValidationListeners(c, principal, claims); err != nil {
				return cfg.ErrorHandler(c, err)
			}

			c.Locals(cfg.ContextKey, principal)
			c.Locals(cfg.ClaimsKey, claims)

			if cfg.ContextEnricher != nil {
				c.SetContext(cfg.ContextEnricher(c.Context(), principal, claims))
			}

			return next(c)
		}
	}
}

func ExtractRawTokenFromContext(c router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.Resolver == nil {
		panic("AUTH: JWT middleware configuration: Resolver is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.ClaimsKey == "" {
		cfg.ClaimsKey = "claims"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func defaultErrorHandler(c router.Context, err error) error {
	msg := "Not authorized, invalid token"
	if errors.Is(err, ErrJWTMissingOrMalformed) {
		msg = "Not authorized, no token provided"
	}
	return c.JSON(router.StatusUnauthorized, map[string]any{
		"success": false,
		"message": msg,
	})
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(c router.Context, principal Principal, claims AuthClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, principal, claims); err != nil {
			return err
		}
	}
	return nil
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
