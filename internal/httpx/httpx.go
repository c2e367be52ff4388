// Package httpx holds the request binding and error rendering shared by the
// HTTP handlers.
package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string            `json:"type,omitempty"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// ValidationError reports the fields of a request body that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, rule := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, rule))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Bind parses the request body into out and validates its struct tags.
func Bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = fe.Tag()
			}
			return &ValidationError{Fields: fields}
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Problem writes an application/problem+json response.
func Problem(c *fiber.Ctx, status int, detail string, fields map[string]string) error {
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: c.OriginalURL(),
		Errors:   fields,
	}
	return c.Status(status).JSON(pd, "application/problem+json")
}

// ErrorHandler renders handler errors as problem details. *fiber.Error keeps
// its code and message; anything else is logged and hidden behind a 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return Problem(c, http.StatusUnprocessableEntity, "request validation failed", verr.Fields)
		}
		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return Problem(c, ferr.Code, ferr.Message, nil)
		}
		if logger != nil {
			logger.Error("unhandled request error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return Problem(c, http.StatusInternalServerError, "internal server error", nil)
	}
}
