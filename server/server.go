package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-router"
	"go.uber.org/zap"

	auth "github.com/goliatone/go-auth-starter"
	"github.com/goliatone/go-auth-starter/config"
	"github.com/goliatone/go-auth-starter/middleware/jwtware"
)

// Deps are the collaborators the server is built from
type Deps struct {
	Config   *config.Config
	Repo     auth.RepositoryManager
	Logger   *zap.Logger
	Activity auth.ActivitySink
}

// Server is the HTTP API process
type Server struct {
	srv     router.Server[*fiber.App]
	app     *fiber.App
	cfg     *config.Config
	repo    auth.RepositoryManager
	auther  *auth.Auther
	users   *auth.UserService
	logger  auth.Logger
	started time.Time
}

// New assembles the fiber app with middleware and routes
func New(deps Deps) *Server {
	provider := auth.NewZapLoggerProvider(deps.Logger)
	logger := provider.GetLogger("server")

	activity := deps.Activity
	if activity == nil {
		activity = auth.NewLoggingActivitySink(provider.GetLogger("auth.activity"))
	}

	auth.SetPasswordHashCost(deps.Config.GetBcryptCost())

	auther := auth.NewAuthenticator(deps.Repo, deps.Config).
		WithLoggerProvider(provider).
		WithActivitySink(activity)

	users := auth.NewUserService(deps.Repo).
		WithLoggerProvider(provider).
		WithActivitySink(activity)

	debug := deps.Config.Database.Debug
	s := &Server{
		cfg:     deps.Config,
		repo:    deps.Repo,
		auther:  auther,
		users:   users,
		logger:  logger,
		started: time.Now(),
	}

	s.srv = router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		s.app = fiber.New(fiber.Config{
			AppName:               "go-auth-starter",
			DisableStartupMessage: true,
			BodyLimit:             deps.Config.Server.BodyLimit,
			ErrorHandler:          auth.NewFiberErrorHandler(provider.GetLogger("http"), debug),
		})
		s.middleware()
		return s.app
	})

	s.routes(auth.NewErrorHandler(provider.GetLogger("http"), debug))

	return s
}

// App exposes the fiber app behind the router, mostly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Router returns the router the API routes are mounted on
func (s *Server) Router() router.Router[*fiber.App] {
	return s.srv.Router()
}

// Auther returns the authenticator in use
func (s *Server) Auther() *auth.Auther {
	return s.auther
}

func (s *Server) middleware() {
	s.app.Use(requestid.New())
	s.app.Use(RequestLogger(s.logger))
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: s.cfg.IsDevelopment(),
	}))
	s.app.Use(helmet.New(helmetConfig(s.cfg.Server.ClientURL)))
	s.app.Use(cors.New(corsConfig(s.cfg.Server.ClientURL)))
}

func (s *Server) routes(onError router.ErrorHandler) {
	r := s.srv.Router()
	r.Get("/", func(c router.Context) error {
		return c.JSON(router.StatusOK, map[string]any{"message": "API is running"})
	}).SetName("root")

	api := r.Group("/api")
	api.Get("/health", s.health).SetName("health")

	protect := s.protect(onError)
	requireAdmin := s.authorize(onError, string(auth.RoleAdmin))
	adminOnly := func(next router.HandlerFunc) router.HandlerFunc {
		return protect(requireAdmin(next))
	}

	auth.RegisterRoutes(api,
		auth.NewAuthController(s.auther, s.logger).WithErrorHandler(onError),
		auth.NewUserController(s.users).WithErrorHandler(onError),
		auth.Guards{Protect: protect, AdminOnly: adminOnly},
	)
}

func (s *Server) protect(onError router.ErrorHandler) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ContextKey: auth.UserContextKey,
		Resolver: jwtware.ResolverFunc(func(ctx context.Context, token string) (jwtware.Principal, jwtware.AuthClaims, error) {
			user, claims, err := s.auther.ResolveUser(ctx, token)
			if err != nil {
				return nil, nil, err
			}
			return user, claims, nil
		}),
		ContextEnricher: func(ctx context.Context, p jwtware.Principal, claims jwtware.AuthClaims) context.Context {
			if user, ok := p.(*auth.User); ok {
				ctx = auth.WithContext(ctx, user)
			}
			if ac, ok := claims.(auth.AuthClaims); ok {
				ctx = auth.WithClaimsContext(ctx, ac)
			}
			return ctx
		},
		ErrorHandler: guardErrorHandler(onError),
	})
}

func (s *Server) authorize(onError router.ErrorHandler, roles ...string) router.MiddlewareFunc {
	return jwtware.RequireRoles(roles, jwtware.RolesConfig{
		ContextKey:   auth.UserContextKey,
		ErrorHandler: guardErrorHandler(onError),
	})
}

// guardErrorHandler maps middleware errors into the auth taxonomy before
// onError renders them.
func guardErrorHandler(onError router.ErrorHandler) router.ErrorHandler {
	return func(c router.Context, err error) error {
		switch {
		case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
			err = auth.ErrTokenMissing
		case errors.Is(err, jwtware.ErrNotAuthenticated):
			err = auth.ErrNotAuthorized
		case errors.Is(err, jwtware.ErrRoleNotAllowed):
			err = auth.ErrForbidden
		}
		return onError(c, err)
	}
}

func (s *Server) health(c router.Context) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		return auth.Respond(c, auth.Failure{
			Code:    http.StatusServiceUnavailable,
			Message: "Service unavailable",
			Err:     err.Error(),
		})
	}

	return auth.Respond(c, auth.Success{
		Message: "API is healthy",
		Data: map[string]any{
			"status":   "ok",
			"database": "up",
			"uptime":   time.Since(s.started).Round(time.Second).String(),
		},
	})
}

// Listen blocks serving on the configured port
func (s *Server) Listen() error {
	s.logger.Info("server listening", "addr", s.cfg.Addr())
	return s.srv.Serve(s.cfg.Addr())
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Listen()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.app.ShutdownWithContext(shutdownCtx)
}
