package models

import (
	"encoding/json"
	"strings"
	"time"
)

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

// Valid reports whether s is a known lifecycle state.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// TagList is an ordered list of free-text tags. It decodes from either a JSON
// array or a comma-separated string.
type TagList []string

// UnmarshalJSON accepts `["a","b"]`, `"a, b"` and null.
func (t *TagList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*t = TagList{}
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*t = ParseTags(raw)
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*t = NormalizeTags(items)
	return nil
}

// ParseTags splits a comma-separated tag string.
func ParseTags(raw string) TagList {
	return NormalizeTags(strings.Split(raw, ","))
}

// NormalizeTags trims tags, drops empties and removes case-insensitive
// duplicates while keeping first-seen order.
func NormalizeTags(items []string) TagList {
	out := make(TagList, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		tag := strings.TrimSpace(item)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Post is the central entity of the blog. Status and the offensive flag are
// independent: a post may be published and flagged at the same time.
type Post struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Slug            string     `gorm:"uniqueIndex;not null" json:"slug"`
	Title           string     `gorm:"not null" json:"title"`
	Excerpt         string     `gorm:"type:text" json:"excerpt"`
	Content         string     `gorm:"type:text;not null" json:"content"`
	ContentHTML     string     `gorm:"type:text" json:"content_html"`
	FeaturedImage   string     `json:"featured_image,omitempty"`
	FeaturedImageID string     `json:"-"`
	Tags            TagList    `gorm:"type:text;serializer:json" json:"tags"`
	Keywords        []string   `gorm:"type:text;serializer:json" json:"keywords"`
	CategoryID      uint       `gorm:"not null;index" json:"category_id"`
	Category        *Category  `gorm:"foreignKey:CategoryID" json:"-"`
	AuthorID        uint       `gorm:"not null;index" json:"author_id"`
	Author          *User      `gorm:"foreignKey:AuthorID" json:"-"`
	Status          PostStatus `gorm:"type:varchar(20);not null;default:draft;index" json:"status"`
	PublishedAt     *time.Time `gorm:"index" json:"published_at"`
	LastEditedAt    *time.Time `json:"last_edited_at"`
	ArchiveReason   string     `gorm:"type:text" json:"archive_reason,omitempty"`
	Featured        bool       `gorm:"not null;default:false;index" json:"featured"`

	IsOffensive       bool       `gorm:"not null;default:false;index" json:"is_offensive"`
	OffenseReason     string     `gorm:"type:text" json:"offense_reason,omitempty"`
	OffenseReportedBy *uint      `json:"offense_reported_by,omitempty"`
	OffenseReportedAt *time.Time `json:"offense_reported_at,omitempty"`
	OffenseResolvedBy *uint      `json:"offense_resolved_by,omitempty"`
	OffenseResolvedAt *time.Time `json:"offense_resolved_at,omitempty"`
	ModeratedBy       *uint      `json:"moderated_by,omitempty"`
	ModeratedAt       *time.Time `json:"moderated_at,omitempty"`

	WordCount     int   `gorm:"not null;default:0" json:"word_count"`
	ReadTime      int   `gorm:"not null;default:1" json:"read_time"`
	Views         int64 `gorm:"not null;default:0;index" json:"views"`
	LikesCount    int   `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int   `gorm:"not null;default:0" json:"comments_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PubliclyVisible reports whether anonymous readers may see the post.
func (p *Post) PubliclyVisible() bool {
	return p.Status == PostStatusPublished && !p.IsOffensive
}

// Relations selects which references LoadWithRelations expands.
type Relations struct {
	Author   bool
	Category bool
}

// PostView is a post with its references resolved for API responses.
type PostView struct {
	*Post
	Author   *UserSummary     `json:"author,omitempty"`
	Category *CategorySummary `json:"category,omitempty"`
	IsLiked  bool             `json:"is_liked"`
}

// NewPostView builds a view from a post whose associations may have been
// preloaded.
func NewPostView(p *Post) *PostView {
	return &PostView{
		Post:     p,
		Author:   p.Author.Summary(),
		Category: p.Category.Summary(),
	}
}

// PostLike records one user's like on a post. The pair is unique.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeResult is returned by like toggles.
type LikeResult struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"is_liked"`
}
