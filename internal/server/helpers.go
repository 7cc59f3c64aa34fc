package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parsePagination reads limit and offset. Bad or out-of-range values are
// clamped by the services.
func parsePagination(c *fiber.Ctx) service.Page {
	return service.Page{
		Limit:  c.QueryInt("limit", service.DefaultPageSize),
		Offset: c.QueryInt("offset", 0),
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns a route param name into a label: "id" -> "ID",
// "postId" -> "post ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		return strings.ToLower(strings.Join(splitCamel(param[:len(param)-2]), " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// decodeJSON strictly decodes the request body into dst: unknown fields and
// trailing data are rejected. On failure it writes a 400 response and returns
// errResponseWritten.
func decodeJSON(c *fiber.Ctx, dst any) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Request body is required"))
		return errResponseWritten
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid request body"
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			msg = "Unknown field " + field
		}
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msg))
		return errResponseWritten
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// respondError writes err as an envelope with its mapped status. Internal
// causes are logged, never returned.
func respondError(c *fiber.Ctx, err error) error {
	appErr := models.AsAppError(err)
	status := appErr.StatusCode()
	if status >= fiber.StatusInternalServerError {
		cause := appErr.Error()
		if appErr.Err != nil {
			cause = appErr.Err.Error()
		}
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", cause))
	}
	return models.RespondWithError(c, status, appErr)
}

func respondOK(c *fiber.Ctx, message string, data any) error {
	return models.RespondWithData(c, fiber.StatusOK, message, data)
}

func respondCreated(c *fiber.Ctx, message string, data any) error {
	return models.RespondWithData(c, fiber.StatusCreated, message, data)
}

func respondPosts(c *fiber.Ctx, page *service.PostPage) error {
	return models.RespondWithPage(c, page.Items, models.NewPagination(page.Limit, page.Offset, page.Total))
}

// optionalBool parses a tri-state boolean query parameter.
func optionalBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, models.NewValidationError("Invalid " + key + " filter")
	}
	return &v, nil
}

func optionalStatus(c *fiber.Ctx) *models.PostStatus {
	raw := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if raw == "" {
		return nil
	}
	status := models.PostStatus(raw)
	return &status
}
