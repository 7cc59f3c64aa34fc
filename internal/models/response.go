package models

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorBody is the error member of the response envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Pagination describes the window of a list response.
type Pagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// Response is the envelope every endpoint writes.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// NewPagination fills HasMore from the window and total.
func NewPagination(limit, offset int, total int64) *Pagination {
	return &Pagination{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: int64(offset+limit) < total,
	}
}

// RespondWithData writes a successful envelope.
func RespondWithData(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondWithPage writes a successful list envelope.
func RespondWithPage(c *fiber.Ctx, data any, page *Pagination) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success:    true,
		Message:    "OK",
		Data:       data,
		Pagination: page,
	})
}

// RespondWithError writes a failure envelope. The wrapped cause of an
// AppError is never serialized.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	appErr := AsAppError(err)
	return c.Status(status).JSON(Response{
		Success: false,
		Message: appErr.Message,
		Error: &ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}
