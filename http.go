package auth

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Result is the tagged response envelope. It is either a Success or a Failure.
type Result interface {
	Status() int
	isResult()
}

// Success is the envelope for successful responses
type Success struct {
	Code    int
	Message string
	Data    any
}

func (Success) isResult() {}

// Status returns the HTTP status, 200 by default
func (s Success) Status() int {
	if s.Code == 0 {
		return http.StatusOK
	}
	return s.Code
}

// MarshalJSON renders {success: true, message, data?}
func (s Success) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    any    `json:"data,omitempty"`
	}{true, s.Message, s.Data})
}

// Failure is the envelope for failed responses
type Failure struct {
	Code    int
	Message string
	Err     string
}

func (Failure) isResult() {}

// Status returns the HTTP status, 500 by default
func (f Failure) Status() int {
	if f.Code == 0 {
		return http.StatusInternalServerError
	}
	return f.Code
}

// MarshalJSON renders {success: false, message, error?}
func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   string `json:"error,omitempty"`
	}{false, f.Message, f.Err})
}

// Envelope is the decoded form of either result, used by clients
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Respond writes the result with its status
func Respond(c router.Context, r Result) error {
	return c.JSON(r.Status(), r)
}

// FailureFromError maps an error into the failure envelope
func FailureFromError(err error) Failure {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Failure{Code: fe.Code, Message: fe.Message}
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return Failure{
			Code:    http.StatusInternalServerError,
			Message: "Server error",
			Err:     err.Error(),
		}
	}

	f := Failure{
		Code:    StatusCode(richErr),
		Message: richErr.Message,
	}

	if f.Code >= http.StatusInternalServerError && richErr.Source != nil {
		f.Err = richErr.Source.Error()
	}

	return f
}

// NewErrorHandler returns the route error handler rendering envelopes
func NewErrorHandler(logger Logger, debug bool) router.ErrorHandler {
	if logger == nil {
		logger = defaultLogger()
	}
	return func(c router.Context, err error) error {
		f := FailureFromError(err)
		logFailure(logger, debug, c.Method(), c.Path(), f, err)
		return Respond(c, f)
	}
}

// NewFiberErrorHandler renders the errors fiber raises outside of the
// routes: unmatched paths, oversized bodies and recovered panics.
func NewFiberErrorHandler(logger Logger, debug bool) fiber.ErrorHandler {
	if logger == nil {
		logger = defaultLogger()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == http.StatusNotFound {
			err = NewRouteNotFound(c.OriginalURL())
		}

		f := FailureFromError(err)
		logFailure(logger, debug, c.Method(), c.Path(), f, err)
		return c.Status(f.Status()).JSON(f)
	}
}

func logFailure(logger Logger, debug bool, method, path string, f Failure, err error) {
	var richErr *errors.Error
	if errors.As(err, &richErr) && debug {
		logger.Debug("request error metadata",
			"text_code", richErr.TextCode,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	}

	if f.Status() >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", method,
			"path", path,
			"status", f.Status(),
			"error", err,
		)
	}
}
