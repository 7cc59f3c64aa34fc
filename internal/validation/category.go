package validation

import (
	"fmt"
	"regexp"
)

var (
	categorySlugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	numericSlugRegex  = regexp.MustCompile(`^[0-9]+$`)
)

// Slugs that would shadow API routes.
var reservedCategorySlugs = map[string]struct{}{
	"admin":         {},
	"api":           {},
	"auth":          {},
	"categories":    {},
	"featured":      {},
	"popular":       {},
	"search":        {},
	"posts":         {},
	"notifications": {},
	"swagger":       {},
	"metrics":       {},
	"health":        {},
}

// IsNumericSlug reports whether slug would be read as a category id.
func IsNumericSlug(slug string) bool {
	return numericSlugRegex.MatchString(slug)
}

// ValidateCategorySlug checks slug format and reserved names. All-digit slugs
// are rejected because references of that shape resolve by id.
func ValidateCategorySlug(slug string) error {
	if len(slug) < 2 || len(slug) > 64 || !categorySlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 2-64 lowercase letters, numbers and single hyphens")
	}
	if IsNumericSlug(slug) {
		return fmt.Errorf("slug must contain at least one letter")
	}
	if _, exists := reservedCategorySlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}
	return nil
}
