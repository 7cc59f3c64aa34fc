package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"folio/internal/cache"
	"folio/internal/content"
	"folio/internal/events"
	"folio/internal/media"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/repository"

	"github.com/google/uuid"
)

const (
	maxTitleLen   = 200
	maxExcerptLen = 500
	maxContentLen = 100000
	maxTags       = 20
	maxSlugTries  = 20
)

// PostService owns the post lifecycle: creation, status transitions, the
// moderation overlay, engagement counters and visibility-filtered reads.
type PostService struct {
	posts      repository.PostRepository
	categories CategoryResolver
	media      media.Store
	events     events.Publisher
	cache      cache.Invalidator
	now        func() time.Time
}

// NewPostService wires the lifecycle manager. A nil publisher or invalidator
// is replaced by a no-op.
func NewPostService(
	posts repository.PostRepository,
	categories CategoryResolver,
	store media.Store,
	publisher events.Publisher,
	invalidator cache.Invalidator,
) *PostService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if invalidator == nil {
		invalidator = cache.NopInvalidator{}
	}
	return &PostService{
		posts:      posts,
		categories: categories,
		media:      store,
		events:     publisher,
		cache:      invalidator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreatePostInput is the payload for a new post.
type CreatePostInput struct {
	Title    string             `json:"title"`
	Excerpt  string             `json:"excerpt"`
	Content  string             `json:"content"`
	Category models.CategoryRef `json:"category"`
	Tags     models.TagList     `json:"tags"`
	Status   models.PostStatus  `json:"status"`
	Image    string             `json:"image"`
}

// PostPatch enumerates the fields an update may change. Nil means unchanged.
// An empty Image removes the featured image.
type PostPatch struct {
	Title    *string             `json:"title"`
	Excerpt  *string             `json:"excerpt"`
	Content  *string             `json:"content"`
	Tags     *models.TagList     `json:"tags"`
	Status   *models.PostStatus  `json:"status"`
	Category *models.CategoryRef `json:"category"`
	Image    *string             `json:"image"`
}

// ListPostsInput filters the public feed.
type ListPostsInput struct {
	Category models.CategoryRef
	Tag      string
	Page     Page
}

// SearchInput is a public search request.
type SearchInput struct {
	Query    string
	Scope    repository.SearchScope
	Category models.CategoryRef
	Page     Page
}

// ModerationFilter narrows the admin moderation queue.
type ModerationFilter struct {
	Status    *models.PostStatus
	Offensive *bool
	Page      Page
}

// PostPage is one window of a post listing.
type PostPage struct {
	Items  []*models.PostView
	Total  int64
	Limit  int
	Offset int
}

func (s *PostService) CreatePost(ctx context.Context, viewer models.Identity, in CreatePostInput) (*models.PostView, error) {
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Content)
	excerpt := strings.TrimSpace(in.Excerpt)
	if err := validatePostText(title, excerpt, body); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if !status.Valid() {
		return nil, models.NewValidationError("Invalid status")
	}
	tags := models.NormalizeTags(in.Tags)
	if len(tags) > maxTags {
		return nil, models.NewValidationError(fmt.Sprintf("Too many tags (max %d)", maxTags))
	}
	image := strings.TrimSpace(in.Image)
	if image != "" && !media.IsHostedURL(image) && !media.IsInline(image) {
		return nil, models.NewValidationError("Image must be a URL or a base64 encoded image")
	}
	category, err := s.categories.Resolve(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	if viewer.Anonymous() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if !viewer.CanAuthor() {
		return nil, models.NewForbiddenError("Only researchers and admins can write posts")
	}

	slug, err := s.uniqueSlug(ctx, title)
	if err != nil {
		return nil, err
	}

	now := s.now()
	derived := content.Derive(title, excerpt, body)
	post := &models.Post{
		Slug:         slug,
		Title:        title,
		Excerpt:      excerpt,
		Content:      body,
		ContentHTML:  derived.HTML,
		Tags:         tags,
		Keywords:     derived.Keywords,
		CategoryID:   category.ID,
		AuthorID:     viewer.ID,
		Status:       status,
		WordCount:    derived.WordCount,
		ReadTime:     derived.ReadTime,
		LastEditedAt: &now,
	}
	if status == models.PostStatusPublished {
		post.PublishedAt = &now
	}

	switch {
	case image == "":
	case media.IsHostedURL(image):
		post.FeaturedImage = image
	default:
		if uploaded, err := s.uploadInline(ctx, image); err != nil {
			middleware.Logger.WarnContext(ctx, "featured image upload failed, creating post without image",
				slog.String("error", err.Error()))
		} else {
			post.FeaturedImage = uploaded.URL
			post.FeaturedImageID = uploaded.PublicID
		}
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if !repository.IsUniqueViolation(err) {
			s.discardAsset(ctx, post.FeaturedImageID)
			return nil, models.NewInternalError(err)
		}
		// Lost a race for the slug.
		post.ID = 0
		post.Slug = slugWithSuffix(slug, uuid.NewString()[:8])
		if err := s.posts.Create(ctx, post); err != nil {
			s.discardAsset(ctx, post.FeaturedImageID)
			return nil, mapRepoError(err, "Post", post.Slug)
		}
	}

	s.emit(ctx, events.PostCreated, post, viewer.ID, "")
	if post.Status == models.PostStatusPublished {
		s.emit(ctx, events.PostPublished, post, viewer.ID, "")
	}
	invalidateResponses(ctx, s.cache)

	return s.loadView(ctx, viewer, post.ID)
}

func (s *PostService) UpdatePost(ctx context.Context, viewer models.Identity, id uint, patch PostPatch) (*models.PostView, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	var category *models.Category
	if patch.Category != nil {
		var err error
		if category, err = s.categories.Resolve(ctx, *patch.Category); err != nil {
			return nil, err
		}
	}

	post, err := s.ownedPost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if category != nil {
		post.CategoryID = category.ID
	}

	var (
		newAsset     *media.UploadResult
		replacedID   string
		imageChanged bool
	)
	if patch.Image != nil {
		image := strings.TrimSpace(*patch.Image)
		switch {
		case image == "":
			replacedID = post.FeaturedImageID
			post.FeaturedImage, post.FeaturedImageID = "", ""
		case media.IsHostedURL(image):
			if image != post.FeaturedImage {
				replacedID = post.FeaturedImageID
				post.FeaturedImage, post.FeaturedImageID = image, ""
			}
		default:
			uploaded, err := s.uploadInline(ctx, image)
			if err != nil {
				return nil, models.NewValidationError("Image upload failed")
			}
			newAsset = &uploaded
			replacedID = post.FeaturedImageID
			post.FeaturedImage, post.FeaturedImageID = uploaded.URL, uploaded.PublicID
		}
		imageChanged = true
	}

	textChanged := false
	if patch.Title != nil {
		post.Title = strings.TrimSpace(*patch.Title)
		textChanged = true
	}
	if patch.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(*patch.Excerpt)
		textChanged = true
	}
	if patch.Content != nil {
		post.Content = strings.TrimSpace(*patch.Content)
		textChanged = true
	}
	if textChanged {
		s.applyDerived(post)
	}
	if patch.Tags != nil {
		post.Tags = models.NormalizeTags(*patch.Tags)
	}

	now := s.now()
	published := false
	if patch.Status != nil && *patch.Status != post.Status {
		published = *patch.Status == models.PostStatusPublished
		s.transition(post, viewer, *patch.Status, now)
		if post.Status != models.PostStatusArchived {
			post.ArchiveReason = ""
		}
	}
	post.LastEditedAt = &now

	if err := s.posts.Save(ctx, post); err != nil {
		if newAsset != nil {
			s.discardAsset(ctx, newAsset.PublicID)
		}
		return nil, models.NewInternalError(err)
	}
	if imageChanged && replacedID != "" && replacedID != post.FeaturedImageID {
		s.discardAsset(ctx, replacedID)
	}

	s.emit(ctx, events.PostUpdated, post, viewer.ID, "")
	if published {
		s.emit(ctx, events.PostPublished, post, viewer.ID, "")
	}
	invalidateResponses(ctx, s.cache)

	return s.loadView(ctx, viewer, post.ID)
}

// ArchivePost moves a post to archived with the given reason.
func (s *PostService) ArchivePost(ctx context.Context, viewer models.Identity, id uint, reason string) (*models.PostView, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxExcerptLen {
		return nil, models.NewValidationError(fmt.Sprintf("Reason too long (max %d characters)", maxExcerptLen))
	}

	post, err := s.ownedPost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	s.transition(post, viewer, models.PostStatusArchived, now)
	post.ArchiveReason = reason
	post.LastEditedAt = &now
	if err := s.posts.Save(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.emit(ctx, events.PostArchived, post, viewer.ID, reason)
	invalidateResponses(ctx, s.cache)
	return s.loadView(ctx, viewer, post.ID)
}

// UnarchivePost restores an archived post to draft or published.
func (s *PostService) UnarchivePost(ctx context.Context, viewer models.Identity, id uint, target models.PostStatus) (*models.PostView, error) {
	if target != models.PostStatusDraft && target != models.PostStatusPublished {
		return nil, models.NewValidationError("Target status must be draft or published")
	}

	post, err := s.ownedPost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusArchived {
		return nil, models.NewValidationError("Post is not archived")
	}

	now := s.now()
	s.transition(post, viewer, target, now)
	post.ArchiveReason = ""
	post.LastEditedAt = &now
	if err := s.posts.Save(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.emit(ctx, events.PostUnarchived, post, viewer.ID, "")
	if target == models.PostStatusPublished {
		s.emit(ctx, events.PostPublished, post, viewer.ID, "")
	}
	invalidateResponses(ctx, s.cache)
	return s.loadView(ctx, viewer, post.ID)
}

// MarkAsOffensive hides a post from every public surface without touching
// its status.
func (s *PostService) MarkAsOffensive(ctx context.Context, viewer models.Identity, id uint, reason string) (*models.PostView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("Reason is required")
	}
	if len(reason) > maxExcerptLen {
		return nil, models.NewValidationError(fmt.Sprintf("Reason too long (max %d characters)", maxExcerptLen))
	}

	post, err := s.adminPost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	// The active report stays with its original reporter.
	if post.IsOffensive {
		return nil, models.NewValidationError("Post is already flagged as offensive")
	}

	now := s.now()
	post.IsOffensive = true
	post.OffenseReason = reason
	post.OffenseReportedBy = &viewer.ID
	post.OffenseReportedAt = &now
	post.OffenseResolvedBy = nil
	post.OffenseResolvedAt = nil
	if err := s.posts.Save(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.emit(ctx, events.PostFlagged, post, viewer.ID, reason)
	invalidateResponses(ctx, s.cache)
	return s.loadView(ctx, viewer, post.ID)
}

// RemoveOffense clears the flag. The reporter fields stay as an audit trail.
func (s *PostService) RemoveOffense(ctx context.Context, viewer models.Identity, id uint) (*models.PostView, error) {
	post, err := s.adminPost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !post.IsOffensive {
		return nil, models.NewValidationError("Post is not flagged as offensive")
	}

	now := s.now()
	post.IsOffensive = false
	post.OffenseReason = ""
	post.OffenseResolvedBy = &viewer.ID
	post.OffenseResolvedAt = &now
	if err := s.posts.Save(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.emit(ctx, events.PostFlagCleared, post, viewer.ID, "")
	invalidateResponses(ctx, s.cache)
	return s.loadView(ctx, viewer, post.ID)
}

// SetFeatured curates the featured listing.
func (s *PostService) SetFeatured(ctx context.Context, viewer models.Identity, id uint, featured bool) (*models.PostView, error) {
	post, err := s.adminPost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if post.Featured != featured {
		post.Featured = featured
		if err := s.posts.Save(ctx, post); err != nil {
			return nil, models.NewInternalError(err)
		}
		invalidateResponses(ctx, s.cache)
	}
	return s.loadView(ctx, viewer, post.ID)
}

// DeletePost removes the post with its likes and comments, then its stored
// image.
func (s *PostService) DeletePost(ctx context.Context, viewer models.Identity, id uint) error {
	post, err := s.ownedPost(ctx, viewer, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return mapRepoError(err, "Post", id)
	}

	s.discardAsset(ctx, post.FeaturedImageID)
	s.emit(ctx, events.PostDeleted, post, viewer.ID, "")
	invalidateResponses(ctx, s.cache)
	return nil
}

// ToggleLike adds or removes the viewer's like.
func (s *PostService) ToggleLike(ctx context.Context, viewer models.Identity, id uint) (models.LikeResult, error) {
	if viewer.Anonymous() {
		return models.LikeResult{}, models.NewUnauthorizedError("Authentication required")
	}
	post, err := s.visiblePost(ctx, viewer, id)
	if err != nil {
		return models.LikeResult{}, err
	}

	result, err := s.posts.ToggleLike(ctx, post.ID, viewer.ID)
	if err != nil {
		return models.LikeResult{}, mapRepoError(err, "Post", id)
	}

	if result.IsLiked && viewer.ID != post.AuthorID {
		s.emit(ctx, events.PostLiked, post, viewer.ID, "")
	}
	invalidateResponses(ctx, s.cache)
	return result, nil
}

// IncrementView counts one render of the post. Repeat views are not
// deduplicated and do not invalidate cached responses.
func (s *PostService) IncrementView(ctx context.Context, id uint) error {
	if err := s.posts.IncrementViews(ctx, id); err != nil {
		return mapRepoError(err, "Post", id)
	}
	return nil
}

// GetPost returns a post the viewer may see. Hidden posts are reported as
// missing.
func (s *PostService) GetPost(ctx context.Context, viewer models.Identity, id uint) (*models.PostView, error) {
	view, err := s.posts.LoadWithRelations(ctx, id, models.Relations{Author: true, Category: true})
	if err != nil {
		return nil, mapRepoError(err, "Post", id)
	}
	if !canView(viewer, view.Post) {
		return nil, models.NewNotFoundError("Post", id)
	}
	s.markLiked(ctx, viewer, []*models.PostView{view})
	return view, nil
}

func (s *PostService) GetPostBySlug(ctx context.Context, viewer models.Identity, slug string) (*models.PostView, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, models.NewValidationError("Slug is required")
	}
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &models.AppError{Code: models.CodeNotFound, Message: "Post not found"}
		}
		return nil, models.NewInternalError(err)
	}
	return s.GetPost(ctx, viewer, post.ID)
}

// ListPosts is the general feed. It only ever shows public posts, admins
// included.
func (s *PostService) ListPosts(ctx context.Context, viewer models.Identity, in ListPostsInput) (*PostPage, error) {
	filter := repository.PostFilter{PublicOnly: true, Tag: in.Tag, Sort: repository.SortPublished}
	if in.Category != "" {
		category, err := s.categories.Resolve(ctx, in.Category)
		if err != nil {
			return nil, err
		}
		filter.CategoryID = category.ID
	}
	return s.list(ctx, viewer, filter, in.Page)
}

func (s *PostService) FeaturedPosts(ctx context.Context, viewer models.Identity, page Page) (*PostPage, error) {
	featured := true
	return s.list(ctx, viewer, repository.PostFilter{
		PublicOnly: true,
		Featured:   &featured,
		Sort:       repository.SortPublished,
	}, page)
}

func (s *PostService) PopularPosts(ctx context.Context, viewer models.Identity, page Page) (*PostPage, error) {
	return s.list(ctx, viewer, repository.PostFilter{PublicOnly: true, Sort: repository.SortPopular}, page)
}

// RelatedPosts lists public posts sharing the category, a tag or a keyword
// with the given post.
func (s *PostService) RelatedPosts(ctx context.Context, viewer models.Identity, id uint, page Page) (*PostPage, error) {
	source, err := s.visiblePost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, viewer, repository.PostFilter{
		PublicOnly:        true,
		ExcludeID:         source.ID,
		RelatedCategoryID: source.CategoryID,
		RelatedTags:       source.Tags,
		RelatedKeywords:   source.Keywords,
		Sort:              repository.SortRelated,
	}, page)
}

// PostsByAuthor lists an author's posts. The author sees every status and
// their own flagged posts; everyone else, admins included, sees public posts
// only. Admins browse hidden posts through ModerationQueue.
func (s *PostService) PostsByAuthor(ctx context.Context, viewer models.Identity, authorID uint, status *models.PostStatus, page Page) (*PostPage, error) {
	if status != nil && !status.Valid() {
		return nil, models.NewValidationError("Invalid status")
	}

	filter := repository.PostFilter{AuthorID: authorID, Sort: repository.SortLatest}
	switch {
	case viewer.ID == authorID && !viewer.Anonymous():
		if status != nil {
			filter.Statuses = []models.PostStatus{*status}
		}
	default:
		if status != nil && *status != models.PostStatusPublished {
			p := page.normalize()
			return &PostPage{Items: []*models.PostView{}, Limit: p.Limit, Offset: p.Offset}, nil
		}
		filter.PublicOnly = true
		filter.Sort = repository.SortPublished
	}
	return s.list(ctx, viewer, filter, page)
}

func (s *PostService) SearchPosts(ctx context.Context, viewer models.Identity, in SearchInput) (*PostPage, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	if len(query) > maxTitleLen {
		return nil, models.NewValidationError("Search query too long")
	}
	scope := in.Scope
	if scope == "" {
		scope = repository.ScopeAll
	}
	if !scope.Valid() {
		return nil, models.NewValidationError("Scope must be one of all, title, content, author, tags")
	}

	filter := repository.PostFilter{
		PublicOnly:  true,
		Search:      query,
		SearchScope: scope,
		Sort:        repository.SortPublished,
	}
	if in.Category != "" {
		category, err := s.categories.Resolve(ctx, in.Category)
		if err != nil {
			return nil, err
		}
		filter.CategoryID = category.ID
	}
	return s.list(ctx, viewer, filter, in.Page)
}

// ModerationQueue lists any post for admins, optionally by status and flag.
func (s *PostService) ModerationQueue(ctx context.Context, viewer models.Identity, in ModerationFilter) (*PostPage, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, models.NewValidationError("Invalid status")
	}
	if !viewer.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}

	filter := repository.PostFilter{Offensive: in.Offensive, Sort: repository.SortLatest}
	if in.Status != nil {
		filter.Statuses = []models.PostStatus{*in.Status}
	}
	return s.list(ctx, viewer, filter, in.Page)
}

func (s *PostService) list(ctx context.Context, viewer models.Identity, filter repository.PostFilter, page Page) (*PostPage, error) {
	page = page.normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	views := make([]*models.PostView, len(posts))
	for i, p := range posts {
		views[i] = models.NewPostView(p)
	}
	s.markLiked(ctx, viewer, views)

	return &PostPage{Items: views, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *PostService) markLiked(ctx context.Context, viewer models.Identity, views []*models.PostView) {
	if viewer.Anonymous() || len(views) == 0 {
		return
	}
	ids := make([]uint, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	liked, err := s.posts.LikedPostIDs(ctx, viewer.ID, ids)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load liked posts", slog.String("error", err.Error()))
		return
	}
	for _, v := range views {
		v.IsLiked = liked[v.ID]
	}
}

// ownedPost loads a post the viewer may mutate: its author or an admin.
func (s *PostService) ownedPost(ctx context.Context, viewer models.Identity, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "Post", id)
	}
	if viewer.Anonymous() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if post.AuthorID != viewer.ID && !viewer.IsAdmin() {
		return nil, models.NewForbiddenError("You can only modify your own posts")
	}
	return post, nil
}

func (s *PostService) adminPost(ctx context.Context, viewer models.Identity, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "Post", id)
	}
	if viewer.Anonymous() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if !viewer.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}
	return post, nil
}

func (s *PostService) visiblePost(ctx context.Context, viewer models.Identity, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "Post", id)
	}
	if !canView(viewer, post) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func canView(viewer models.Identity, post *models.Post) bool {
	if post.PubliclyVisible() {
		return true
	}
	return !viewer.Anonymous() && (viewer.ID == post.AuthorID || viewer.IsAdmin())
}

// transition moves post to status. published_at is only ever set once.
func (s *PostService) transition(post *models.Post, viewer models.Identity, status models.PostStatus, now time.Time) {
	post.Status = status
	if status == models.PostStatusPublished && post.PublishedAt == nil {
		post.PublishedAt = &now
	}
	if viewer.IsAdmin() && viewer.ID != post.AuthorID {
		post.ModeratedBy = &viewer.ID
		post.ModeratedAt = &now
	}
}

func (s *PostService) applyDerived(post *models.Post) {
	derived := content.Derive(post.Title, post.Excerpt, post.Content)
	post.ContentHTML = derived.HTML
	post.WordCount = derived.WordCount
	post.ReadTime = derived.ReadTime
	post.Keywords = derived.Keywords
}

func (s *PostService) loadView(ctx context.Context, viewer models.Identity, id uint) (*models.PostView, error) {
	view, err := s.posts.LoadWithRelations(ctx, id, models.Relations{Author: true, Category: true})
	if err != nil {
		return nil, mapRepoError(err, "Post", id)
	}
	s.markLiked(ctx, viewer, []*models.PostView{view})
	return view, nil
}

// uniqueSlug derives a slug from title, suffixing -2, -3 and so on when
// taken.
func (s *PostService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := content.Slugify(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for n := 2; n <= maxSlugTries+1; n++ {
		exists, err := s.posts.SlugExists(ctx, candidate)
		if err != nil {
			return "", models.NewInternalError(err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = slugWithSuffix(base, fmt.Sprint(n))
	}
	return slugWithSuffix(base, uuid.NewString()[:8]), nil
}

func slugWithSuffix(base, suffix string) string {
	limit := content.MaxSlugLength - len(suffix) - 1
	if len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	return base + "-" + suffix
}

func (s *PostService) uploadInline(ctx context.Context, ref string) (media.UploadResult, error) {
	if s.media == nil {
		return media.UploadResult{}, fmt.Errorf("no media store configured")
	}
	data, err := media.DecodeInline(ref)
	if err != nil {
		return media.UploadResult{}, err
	}
	return s.media.Upload(ctx, data, media.DefaultFolder)
}

// discardAsset deletes a stored image, logging failures.
func (s *PostService) discardAsset(ctx context.Context, publicID string) {
	if publicID == "" || s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, publicID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete media asset",
			slog.String("public_id", publicID),
			slog.String("error", err.Error()))
	}
}

func (s *PostService) emit(ctx context.Context, typ events.Type, post *models.Post, actorID uint, reason string) {
	s.events.Publish(ctx, events.Event{
		Type:       typ,
		PostID:     post.ID,
		AuthorID:   post.AuthorID,
		ActorID:    actorID,
		Title:      post.Title,
		Reason:     reason,
		OccurredAt: s.now(),
	})
}

func validatePostText(title, excerpt, body string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", maxTitleLen))
	}
	if len(excerpt) > maxExcerptLen {
		return models.NewValidationError(fmt.Sprintf("Excerpt too long (max %d characters)", maxExcerptLen))
	}
	if body == "" {
		return models.NewValidationError("Content is required")
	}
	if len(body) > maxContentLen {
		return models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", maxContentLen))
	}
	return nil
}

func validatePatch(p PostPatch) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return models.NewValidationError("Title cannot be empty")
		}
		if len(title) > maxTitleLen {
			return models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", maxTitleLen))
		}
	}
	if p.Excerpt != nil && len(strings.TrimSpace(*p.Excerpt)) > maxExcerptLen {
		return models.NewValidationError(fmt.Sprintf("Excerpt too long (max %d characters)", maxExcerptLen))
	}
	if p.Content != nil {
		body := strings.TrimSpace(*p.Content)
		if body == "" {
			return models.NewValidationError("Content cannot be empty")
		}
		if len(body) > maxContentLen {
			return models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", maxContentLen))
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return models.NewValidationError("Invalid status")
	}
	if p.Tags != nil && len(models.NormalizeTags(*p.Tags)) > maxTags {
		return models.NewValidationError(fmt.Sprintf("Too many tags (max %d)", maxTags))
	}
	if p.Image != nil {
		image := strings.TrimSpace(*p.Image)
		if image != "" && !media.IsHostedURL(image) && !media.IsInline(image) {
			return models.NewValidationError("Image must be a URL or a base64 encoded image")
		}
	}
	return nil
}

func invalidateResponses(ctx context.Context, inv cache.Invalidator) {
	if err := inv.InvalidateResponses(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to invalidate response cache", slog.String("error", err.Error()))
	}
}
