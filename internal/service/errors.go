// Package service holds the business logic between HTTP handlers and
// repositories.
package service

import (
	"fmt"

	"folio/internal/models"
	"folio/internal/repository"
)

// Pagination bounds shared by list operations.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// mapRepoError turns a storage error into an AppError for resource.
func mapRepoError(err error, resource string, id any) error {
	switch {
	case err == nil:
		return nil
	case repository.IsNotFound(err):
		return models.NewNotFoundError(resource, id)
	case repository.IsUniqueViolation(err):
		return models.NewConflictError(fmt.Sprintf("%s already exists", resource))
	default:
		return models.NewInternalError(err)
	}
}
