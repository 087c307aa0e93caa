// Package client talks to the auth API and keeps the resulting session.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-auth-starter"
)

const DefaultTimeout = 10 * time.Second

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate holds the fields to change, nil fields are left alone
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

type userEnvelope struct {
	User auth.UserView `json:"user"`
}

// APIClient calls the REST API. The bearer token is read from the session
// store on every request.
type APIClient struct {
	baseURL string
	store   SessionStore
	timeout time.Duration
}

// NewAPIClient returns a client for baseURL, e.g. http://localhost:5000/api
func NewAPIClient(baseURL string, store SessionStore) *APIClient {
	if store == nil {
		store = NewMemoryStore()
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		timeout: DefaultTimeout,
	}
}

// WithTimeout sets the per request timeout
func (c *APIClient) WithTimeout(timeout time.Duration) *APIClient {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// Store returns the session store the client reads tokens from
func (c *APIClient) Store() SessionStore {
	return c.store
}

func (c *APIClient) Register(ctx context.Context, req RegisterRequest) (*auth.AuthResult, error) {
	var res auth.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *APIClient) Login(ctx context.Context, email, password string) (*auth.AuthResult, error) {
	var res auth.AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (*auth.AuthResult, error) {
	var res auth.AuthResult
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout tells the server to revoke refreshToken when given
func (c *APIClient) Logout(ctx context.Context, refreshToken string) error {
	var body any
	if refreshToken != "" {
		body = map[string]string{"refreshToken": refreshToken}
	}
	return c.do(ctx, http.MethodPost, "/auth/logout", body, nil)
}

func (c *APIClient) Me(ctx context.Context) (*auth.UserView, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *APIClient) ListUsers(ctx context.Context, page, limit int) (*auth.UserPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out auth.UserPage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) GetUser(ctx context.Context, id string) (*auth.UserView, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *APIClient) UpdateProfile(ctx context.Context, update ProfileUpdate) (*auth.UserView, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodPut, "/users/profile", update, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *APIClient) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)

	if session, err := c.store.Get(); err == nil && session != nil && session.Token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+session.Token)
	}

	if body != nil {
		a.JSON(body)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	a.Timeout(timeout)

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return errors.Wrap(err, errors.CategoryInternal, "invalid request")
	}

	status, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return errors.Wrap(errs[0], errors.CategoryOperation, fmt.Sprintf("%s %s failed", method, path))
	}

	return decodeResponse(status, raw, out)
}

func decodeResponse(status int, raw []byte, out any) error {
	var env auth.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", status)
		}
		return newAPIError(status, msg, env.Error)
	}

	if decodeErr != nil {
		return errors.Wrap(decodeErr, errors.CategoryOperation, "invalid response body")
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "invalid response data")
	}
	return nil
}

func newAPIError(status int, message, detail string) *errors.Error {
	category := errors.CategoryInternal
	switch {
	case status == http.StatusUnauthorized:
		category = errors.CategoryAuth
	case status == http.StatusForbidden:
		category = errors.CategoryAuthz
	case status == http.StatusNotFound:
		category = errors.CategoryNotFound
	case status >= 400 && status < 500:
		category = errors.CategoryBadInput
	}

	err := errors.New(message, category).WithCode(status)
	if detail != "" {
		err = err.WithMetadata(map[string]any{"error": detail})
	}
	return err
}

// ErrorMessage returns the message a user should see for err
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	return err.Error()
}

// StatusOf returns the HTTP status carried by an API error, 0 otherwise
func StatusOf(err error) int {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Code
	}
	return 0
}

var errNoRefreshToken = errors.New("No refresh token found", errors.CategoryAuth).WithCode(http.StatusUnauthorized)
