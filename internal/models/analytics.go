package models

// StatusCount is the number of posts in one lifecycle state.
type StatusCount struct {
	Status PostStatus `json:"status"`
	Count  int64      `json:"count"`
}

// CategoryStat ranks a category by published output.
type CategoryStat struct {
	CategoryID uint   `json:"category_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Posts      int64  `json:"posts"`
	Views      int64  `json:"views"`
}

// AuthorStat ranks an author by reach.
type AuthorStat struct {
	AuthorID uint   `json:"author_id"`
	Username string `json:"username"`
	Posts    int64  `json:"posts"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
}

// Totals aggregates engagement counters over a set of posts.
type Totals struct {
	Posts    int64 `json:"posts"`
	Flagged  int64 `json:"flagged"`
	Featured int64 `json:"featured"`
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

// PlatformSummary is the admin overview of the whole blog.
type PlatformSummary struct {
	Totals        Totals         `json:"totals"`
	ByStatus      []StatusCount  `json:"by_status"`
	TopCategories []CategoryStat `json:"top_categories"`
	TopAuthors    []AuthorStat   `json:"top_authors"`
}

// AuthorSummary is an author's view of their own output.
type AuthorSummary struct {
	AuthorID uint          `json:"author_id"`
	Totals   Totals        `json:"totals"`
	ByStatus []StatusCount `json:"by_status"`
}
