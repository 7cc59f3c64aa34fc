package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Category groups posts by subject.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategorySummary is the projection embedded in post views.
type CategorySummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Summary returns the embedded projection of c.
func (c *Category) Summary() *CategorySummary {
	if c == nil {
		return nil
	}
	return &CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

// CategoryRef names a category by numeric id or by slug. It decodes from a
// JSON number or string.
type CategoryRef string

func (r *CategoryRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*r = ""
	case strings.HasPrefix(trimmed, "\""):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = CategoryRef(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*r = CategoryRef(n.String())
	}
	return nil
}

// ID returns the numeric id when the reference is one.
func (r CategoryRef) ID() (uint, bool) {
	id, err := strconv.ParseUint(string(r), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
