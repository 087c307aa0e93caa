package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// UserContextKey is the locals key holding the resolved *User
const UserContextKey = "user"

// CurrentUser returns the user resolved by the protect middleware
func CurrentUser(c router.Context) (*User, bool) {
	user, ok := c.Locals(UserContextKey).(*User)
	return user, ok && user != nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthController serves /api/auth
type AuthController struct {
	Auther       *Auther
	Logger       Logger
	ErrorHandler router.ErrorHandler
}

// NewAuthController returns a controller over auther
func NewAuthController(auther *Auther, logger Logger) *AuthController {
	if logger == nil {
		logger = defaultLogger()
	}
	return &AuthController{
		Auther:       auther,
		Logger:       logger,
		ErrorHandler: NewErrorHandler(logger, false),
	}
}

// WithErrorHandler replaces the handler used to render failures
func (a *AuthController) WithErrorHandler(h router.ErrorHandler) *AuthController {
	if h != nil {
		a.ErrorHandler = h
	}
	return a
}

// Register handles POST /register
func (a *AuthController) Register(c router.Context) error {
	var msg RegisterUserMessage
	if err := c.Bind(&msg); err != nil {
		return a.ErrorHandler(c, ErrInvalidPayload)
	}

	res, err := a.Auther.Register(c.Context(), msg)
	if err != nil {
		return a.ErrorHandler(c, serverError(err, "Server error during registration"))
	}

	return Respond(c, Success{
		Code:    http.StatusCreated,
		Message: "User registered successfully",
		Data:    res,
	})
}

// Login handles POST /login
func (a *AuthController) Login(c router.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return a.ErrorHandler(c, ErrInvalidPayload)
	}

	res, err := a.Auther.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return a.ErrorHandler(c, serverError(err, "Server error during login"))
	}

	return Respond(c, Success{
		Message: "Login successful",
		Data:    res,
	})
}

// Refresh handles POST /refresh
func (a *AuthController) Refresh(c router.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return a.ErrorHandler(c, ErrInvalidPayload)
	}

	res, err := a.Auther.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return a.ErrorHandler(c, serverError(err, "Server error refreshing token"))
	}

	return Respond(c, Success{
		Message: "Token refreshed successfully",
		Data:    res,
	})
}

// Logout handles POST /logout. The body is optional, requests without a
// content type are treated as empty.
func (a *AuthController) Logout(c router.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil && c.GetString("Content-Type", "") != "" {
		return a.ErrorHandler(c, ErrInvalidPayload)
	}

	actorID := ""
	if header := c.GetString("Authorization", ""); strings.HasPrefix(header, "Bearer ") {
		if claims, err := a.Auther.Verify(strings.TrimSpace(header[len("Bearer "):])); err == nil {
			actorID = claims.UserID()
		}
	}

	if err := a.Auther.Logout(c.Context(), actorID, req.RefreshToken); err != nil {
		return a.ErrorHandler(c, serverError(err, "Server error during logout"))
	}

	return Respond(c, Success{Message: "User logged out successfully"})
}

// Me handles GET /me
func (a *AuthController) Me(c router.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return a.ErrorHandler(c, ErrNotAuthorized)
	}

	return Respond(c, Success{
		Message: "User profile retrieved successfully",
		Data:    map[string]any{"user": user.Projection()},
	})
}

// UserController serves /api/users
type UserController struct {
	Users        *UserService
	ErrorHandler router.ErrorHandler
}

// NewUserController returns a controller over users
func NewUserController(users *UserService) *UserController {
	return &UserController{
		Users:        users,
		ErrorHandler: NewErrorHandler(users.logger, false),
	}
}

// WithErrorHandler replaces the handler used to render failures
func (u *UserController) WithErrorHandler(h router.ErrorHandler) *UserController {
	if h != nil {
		u.ErrorHandler = h
	}
	return u
}

// List handles GET / (admin)
func (u *UserController) List(c router.Context) error {
	page, err := u.Users.List(c.Context(), queryInt(c, "page", DefaultPage), queryInt(c, "limit", DefaultLimit))
	if err != nil {
		return u.ErrorHandler(c, serverError(err, "Server error retrieving users"))
	}

	return Respond(c, Success{
		Message: "Users retrieved successfully",
		Data:    page,
	})
}

// Get handles GET /:id
func (u *UserController) Get(c router.Context) error {
	user, err := u.Users.Get(c.Context(), c.Param("id", ""))
	if err != nil {
		return u.ErrorHandler(c, serverError(err, "Server error retrieving user"))
	}

	return Respond(c, Success{
		Message: "User retrieved successfully",
		Data:    map[string]any{"user": user.Projection()},
	})
}

// UpdateProfile handles PUT /profile
func (u *UserController) UpdateProfile(c router.Context) error {
	current, ok := CurrentUser(c)
	if !ok {
		return u.ErrorHandler(c, ErrNotAuthorized)
	}

	var msg UpdateProfileMessage
	if err := c.Bind(&msg); err != nil {
		return u.ErrorHandler(c, ErrInvalidPayload)
	}
	msg.UserID = current.ID.String()

	user, err := u.Users.UpdateProfile(c.Context(), msg)
	if err != nil {
		return u.ErrorHandler(c, serverError(err, "Server error updating profile"))
	}

	return Respond(c, Success{
		Message: "Profile updated successfully",
		Data:    map[string]any{"user": user.Projection()},
	})
}

// Delete handles DELETE /:id (admin)
func (u *UserController) Delete(c router.Context) error {
	current, ok := CurrentUser(c)
	if !ok {
		return u.ErrorHandler(c, ErrNotAuthorized)
	}

	if err := u.Users.Delete(c.Context(), current.ID.String(), c.Param("id", "")); err != nil {
		return u.ErrorHandler(c, serverError(err, "Server error deleting user"))
	}

	return Respond(c, Success{Message: "User deleted successfully"})
}

// Guards holds the middleware the routes need. AdminOnly authenticates
// the request as well, so each route takes a single guard.
type Guards struct {
	Protect   router.MiddlewareFunc
	AdminOnly router.MiddlewareFunc
}

// RegisterRoutes mounts the auth and user routes on api
func RegisterRoutes[T any](api router.Router[T], authCtrl *AuthController, userCtrl *UserController, guards Guards) {
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authCtrl.Register).SetName("auth.register")
	authGroup.Post("/login", authCtrl.Login).SetName("auth.login")
	authGroup.Post("/refresh", authCtrl.Refresh).SetName("auth.refresh")
	authGroup.Post("/logout", authCtrl.Logout).SetName("auth.logout")
	authGroup.Get("/me", authCtrl.Me, guards.Protect).SetName("auth.me")

	users := api.Group("/users")
	users.Put("/profile", userCtrl.UpdateProfile, guards.Protect).SetName("users.profile")
	users.Get("/", userCtrl.List, guards.AdminOnly).SetName("users.list")
	users.Get("/:id", userCtrl.Get, guards.Protect).SetName("users.get")
	users.Delete("/:id", userCtrl.Delete, guards.AdminOnly).SetName("users.delete")
}

// queryInt reads an integer query value, def when missing or malformed
func queryInt(c router.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key, ""))
	if err != nil {
		return def
	}
	return n
}

// serverError keeps domain errors and wraps everything else as a 500 with msg
func serverError(err error, msg string) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Category != errors.CategoryInternal && richErr.Category != errors.CategoryOperation {
		return err
	}
	return errors.Wrap(err, errors.CategoryInternal, msg).WithCode(errors.CodeInternal)
}
