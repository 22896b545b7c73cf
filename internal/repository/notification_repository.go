package repository

import (
	"context"
	"course_hub_backend/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.Status == "" {
		n.Status = model.NotificationUnread
	}
	if err := r.DB.WithContext(ctx).Create(n).Error; err != nil {
		return storageErr("create notification", err)
	}
	return nil
}

func (r *NotificationRepository) FindByUser(ctx context.Context, userID uint) ([]model.Notification, error) {
	var list []model.Notification
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	if err != nil {
		return nil, storageErr("list notifications", err)
	}
	return list, nil
}
