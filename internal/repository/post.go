package repository

import (
	"context"
	"encoding/json"
	"strings"

	"folio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostSort selects the ORDER BY of a post listing.
type PostSort string

const (
	SortLatest    PostSort = "latest"
	SortPublished PostSort = "published"
	SortPopular   PostSort = "popular"
	SortRelated   PostSort = "related"
)

// SearchScope restricts which fields a search term is matched against.
type SearchScope string

const (
	ScopeAll     SearchScope = "all"
	ScopeTitle   SearchScope = "title"
	ScopeContent SearchScope = "content"
	ScopeAuthor  SearchScope = "author"
	ScopeTags    SearchScope = "tags"
)

// Valid reports whether s is a known scope.
func (s SearchScope) Valid() bool {
	switch s {
	case ScopeAll, ScopeTitle, ScopeContent, ScopeAuthor, ScopeTags:
		return true
	}
	return false
}

// PostFilter describes a post listing. Zero fields do not filter.
type PostFilter struct {
	// PublicOnly restricts to published, non-offensive posts.
	PublicOnly bool
	Statuses   []models.PostStatus
	Offensive  *bool
	Featured   *bool
	AuthorID   uint
	CategoryID uint
	Tag        string
	ExcludeID  uint

	Search      string
	SearchScope SearchScope

	// RelatedCategoryID, RelatedTags and RelatedKeywords are ORed together.
	RelatedCategoryID uint
	RelatedTags       []string
	RelatedKeywords   []string

	Sort   PostSort
	Limit  int
	Offset int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	LoadWithRelations(ctx context.Context, id uint, rel models.Relations) (*models.PostView, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Save(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error)
	ToggleLike(ctx context.Context, postID, userID uint) (models.LikeResult, error)
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error)
	IncrementViews(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// LoadWithRelations reads a post from the primary with the selected
// references expanded.
func (r *postRepository) LoadWithRelations(ctx context.Context, id uint, rel models.Relations) (*models.PostView, error) {
	q := r.db.WithContext(ctx)
	if rel.Author {
		q = q.Preload("Author")
	}
	if rel.Category {
		q = q.Preload("Category")
	}

	var post models.Post
	if err := q.First(&post, id).Error; err != nil {
		return nil, err
	}
	return models.NewPostView(&post), nil
}

func (r *postRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// Save writes every column of post. Counters are owned by atomic updates and
// are never written back from a possibly stale copy.
func (r *postRepository) Save(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).
		Omit("Author", "Category", "Views", "LikesCount", "CommentsCount", "CreatedAt").
		Select("*").
		Updates(post).Error
}

// Delete removes the post together with its likes and comments.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error) {
	base := r.applyFilter(readDB(r.db).WithContext(ctx).Model(&models.Post{}), filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []*models.Post
	q := applySort(base.Session(&gorm.Session{}), filter.Sort).
		Preload("Author").
		Preload("Category")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) applyFilter(q *gorm.DB, f PostFilter) *gorm.DB {
	if f.PublicOnly {
		q = q.Where("posts.status = ? AND posts.is_offensive = ?", models.PostStatusPublished, false)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("posts.status IN ?", f.Statuses)
	}
	if f.Offensive != nil {
		q = q.Where("posts.is_offensive = ?", *f.Offensive)
	}
	if f.Featured != nil {
		q = q.Where("posts.featured = ?", *f.Featured)
	}
	if f.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.CategoryID != 0 {
		q = q.Where("posts.category_id = ?", f.CategoryID)
	}
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		q = q.Where("LOWER(posts.tags) LIKE ? ESCAPE '\\'", jsonElementPattern(tag))
	}
	if f.ExcludeID != 0 {
		q = q.Where("posts.id <> ?", f.ExcludeID)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where(searchCondition(r.db, term, f.SearchScope))
	}
	if related := relatedCondition(r.db, f); related != nil {
		q = q.Where(related)
	}
	return q
}

func searchCondition(db *gorm.DB, term string, scope SearchScope) *gorm.DB {
	pattern := containsPattern(term)
	byTitle := "LOWER(posts.title) LIKE ? ESCAPE '\\'"
	byContent := "LOWER(posts.content) LIKE ? ESCAPE '\\'"
	byExcerpt := "LOWER(posts.excerpt) LIKE ? ESCAPE '\\'"
	byTags := "LOWER(posts.tags) LIKE ? ESCAPE '\\'"
	byAuthor := "posts.author_id IN (SELECT id FROM users WHERE LOWER(username) LIKE ? ESCAPE '\\')"

	cond := db.Session(&gorm.Session{NewDB: true})
	switch scope {
	case ScopeTitle:
		return cond.Where(byTitle, pattern)
	case ScopeContent:
		return cond.Where(byContent, pattern).Or(byExcerpt, pattern)
	case ScopeAuthor:
		return cond.Where(byAuthor, pattern)
	case ScopeTags:
		return cond.Where(byTags, pattern)
	default:
		return cond.Where(byTitle, pattern).
			Or(byExcerpt, pattern).
			Or(byContent, pattern).
			Or(byTags, pattern).
			Or(byAuthor, pattern)
	}
}

func relatedCondition(db *gorm.DB, f PostFilter) *gorm.DB {
	if f.RelatedCategoryID == 0 && len(f.RelatedTags) == 0 && len(f.RelatedKeywords) == 0 {
		return nil
	}

	cond := db.Session(&gorm.Session{NewDB: true})
	started := false
	or := func(query string, args ...any) {
		if started {
			cond = cond.Or(query, args...)
		} else {
			cond = cond.Where(query, args...)
			started = true
		}
	}

	if f.RelatedCategoryID != 0 {
		or("posts.category_id = ?", f.RelatedCategoryID)
	}
	for _, tag := range f.RelatedTags {
		if strings.TrimSpace(tag) != "" {
			or("LOWER(posts.tags) LIKE ? ESCAPE '\\'", jsonElementPattern(tag))
		}
	}
	for _, kw := range f.RelatedKeywords {
		if strings.TrimSpace(kw) != "" {
			or("LOWER(posts.keywords) LIKE ? ESCAPE '\\'", jsonElementPattern(kw))
		}
	}
	if !started {
		return nil
	}
	return cond
}

// jsonElementPattern matches value as a whole element of a JSON string array
// column, ignoring case.
func jsonElementPattern(value string) string {
	encoded, _ := json.Marshal(strings.ToLower(strings.TrimSpace(value)))
	return "%" + likeEscaper.Replace(string(encoded)) + "%"
}

func applySort(q *gorm.DB, sort PostSort) *gorm.DB {
	switch sort {
	case SortPopular:
		return q.Order("posts.views DESC").Order("posts.likes_count DESC").Order("posts.id DESC")
	case SortRelated:
		return q.Order("posts.views DESC").Order("posts.published_at DESC").Order("posts.id DESC")
	case SortPublished:
		return q.Order("posts.published_at DESC").Order("posts.id DESC")
	default:
		return q.Order("posts.created_at DESC").Order("posts.id DESC")
	}
}

// ToggleLike adds the like if absent and removes it otherwise. The like row
// and the denormalised counter change in one transaction.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (models.LikeResult, error) {
	var result models.LikeResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected > 0 {
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("likes_count", gorm.Expr("CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
			result.IsLiked = false
		} else {
			added := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.PostLike{PostID: postID, UserID: userID})
			if added.Error != nil {
				return added.Error
			}
			if added.RowsAffected > 0 {
				if err := tx.Model(&models.Post{}).Where("id = ?", postID).
					UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error; err != nil {
					return err
				}
			}
			result.IsLiked = true
		}

		var post models.Post
		if err := tx.Select("id", "likes_count").First(&post, postID).Error; err != nil {
			return err
		}
		result.Likes = post.LikesCount
		return nil
	})
	if err != nil {
		return models.LikeResult{}, err
	}
	return result, nil
}

func (r *postRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(postIDs))
	if userID == 0 || len(postIDs) == 0 {
		return liked, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
