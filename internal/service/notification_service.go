package service

import (
	"context"
	"fmt"
	"log/slog"

	"folio/internal/events"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/notifications"
	"folio/internal/repository"
)

// Pusher delivers realtime messages to connected clients.
type Pusher interface {
	PublishUser(ctx context.Context, userID uint, msg notifications.Message) error
	PublishBroadcast(ctx context.Context, msg notifications.Message) error
}

// NotificationService turns domain events into stored notifications for post
// authors and pushes them to their open sockets.
type NotificationService struct {
	repo   repository.NotificationRepository
	users  repository.UserRepository
	pusher Pusher
}

// NewNotificationService returns a NotificationService. pusher may be nil.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, users: users, pusher: pusher}
}

// Subscribe registers the service's handlers on bus.
func (s *NotificationService) Subscribe(bus *events.Bus) {
	bus.Subscribe(s.HandleEvent,
		events.PostLiked,
		events.CommentCreated,
		events.PostFlagged,
		events.PostFlagCleared,
		events.PostArchived,
		events.PostPublished,
	)
}

// HandleEvent stores and pushes the notification an event implies, if any.
func (s *NotificationService) HandleEvent(ctx context.Context, e events.Event) error {
	if e.Type == events.PostPublished {
		return s.push(ctx, 0, notifications.Message{
			Type:    string(e.Type),
			Payload: map[string]any{"post_id": e.PostID, "title": e.Title},
		})
	}
	if e.AuthorID == 0 || e.ActorID == e.AuthorID {
		return nil
	}

	message := s.describe(ctx, e)
	if message == "" {
		return nil
	}

	postID, actorID := e.PostID, e.ActorID
	n := &models.Notification{
		UserID:  e.AuthorID,
		Type:    string(e.Type),
		PostID:  &postID,
		ActorID: &actorID,
		Message: message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	return s.push(ctx, e.AuthorID, notifications.Message{Type: "notification", Payload: n})
}

func (s *NotificationService) describe(ctx context.Context, e events.Event) string {
	switch e.Type {
	case events.PostLiked:
		return fmt.Sprintf("%s liked your post %q", s.actorName(ctx, e.ActorID), e.Title)
	case events.CommentCreated:
		return fmt.Sprintf("%s commented on your post %q", s.actorName(ctx, e.ActorID), e.Title)
	case events.PostFlagged:
		return fmt.Sprintf("Your post %q was flagged by a moderator: %s", e.Title, e.Reason)
	case events.PostFlagCleared:
		return fmt.Sprintf("The flag on your post %q was removed", e.Title)
	case events.PostArchived:
		if e.Reason != "" {
			return fmt.Sprintf("Your post %q was archived by a moderator: %s", e.Title, e.Reason)
		}
		return fmt.Sprintf("Your post %q was archived by a moderator", e.Title)
	}
	return ""
}

func (s *NotificationService) actorName(ctx context.Context, id uint) string {
	if s.users == nil || id == 0 {
		return "Someone"
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "Someone"
	}
	return u.Username
}

func (s *NotificationService) push(ctx context.Context, userID uint, msg notifications.Message) error {
	if s.pusher == nil {
		return nil
	}
	var err error
	if userID == 0 {
		err = s.pusher.PublishBroadcast(ctx, msg)
	} else {
		err = s.pusher.PublishUser(ctx, userID, msg)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to push notification",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()))
	}
	return nil
}

// NotificationPage is one window of a user's notifications.
type NotificationPage struct {
	Items  []*models.Notification
	Total  int64
	Unread int64
	Limit  int
	Offset int
}

func (s *NotificationService) List(ctx context.Context, viewer models.Identity, unreadOnly bool, page Page) (*NotificationPage, error) {
	if viewer.Anonymous() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	page = page.normalize()

	items, total, err := s.repo.ListByUser(ctx, viewer.ID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	unread, err := s.repo.UnreadCount(ctx, viewer.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &NotificationPage{Items: items, Total: total, Unread: unread, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, viewer models.Identity, id uint) error {
	if viewer.Anonymous() {
		return models.NewUnauthorizedError("Authentication required")
	}
	return mapRepoError(s.repo.MarkRead(ctx, viewer.ID, id), "Notification", id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, viewer models.Identity) (int64, error) {
	if viewer.Anonymous() {
		return 0, models.NewUnauthorizedError("Authentication required")
	}
	n, err := s.repo.MarkAllRead(ctx, viewer.ID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
