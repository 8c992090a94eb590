package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ErrorResponse is the JSON body of every error answer
type ErrorResponse struct {
	Error  string         `json:"error"`
	Code   string         `json:"code"`
	Fields map[string]any `json:"fields,omitempty"`
}

// NewHTTPErrorHandler renders rich errors as {error, code}. Internal and
// store failures get a generic message, the details only go to the log.
func NewHTTPErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(ErrorResponse{
				Error: fe.Message,
				Code:  textCodeForStatus(fe.Code),
			})
		}

		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		status := statusFor(richErr)
		res := ErrorResponse{
			Error: richErr.Message,
			Code:  richErr.TextCode,
		}
		if res.Code == "" {
			res.Code = textCodeForStatus(status)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(
				"Request failed",
				"error", richErr.Message,
				"category", richErr.Category,
				"path", c.Path(),
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
			res.Error = http.StatusText(status)
			if status == http.StatusServiceUnavailable {
				res.Error = ErrDependencyUnavailable.Message
			}
		case richErr.Category == errors.CategoryValidation:
			if fields, ok := richErr.Metadata["fields"].(map[string]any); ok {
				res.Fields = fields
			}
		default:
			logger.Debug(
				"Request rejected",
				"error", richErr.Message,
				"text_code", richErr.TextCode,
				"path", c.Path(),
			)
		}

		return c.Status(status).JSON(res)
	}
}

func statusFor(richErr *errors.Error) int {
	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}
	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func textCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return TextCodeValidation
	case http.StatusUnauthorized:
		return TextCodeMissingToken
	case http.StatusForbidden:
		return TextCodeForbidden
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return TextCodeConflict
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return TextCodeDependencyUnavailable
	default:
		return "INTERNAL_ERROR"
	}
}
