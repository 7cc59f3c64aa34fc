package repository

import (
	"context"
	"time"

	"folio/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []*models.Notification
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkRead is scoped to the owner; marking someone else's notification
// reports not found.
func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uint) error {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return err
	}
	if n.ReadAt != nil {
		return nil
	}
	return r.db.WithContext(ctx).Model(&n).UpdateColumn("read_at", time.Now().UTC()).Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		UpdateColumn("read_at", time.Now().UTC())
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}
