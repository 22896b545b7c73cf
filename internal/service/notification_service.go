package service

import (
	"context"
	"course_hub_backend/internal/model"
	"fmt"
	"time"
)

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
}

type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// NotificationService dispatches the side effects of course mutations. It is
// only called after the mutation has been persisted and never undoes it.
type NotificationService struct {
	store       NotificationStore
	users       UserFinder
	mailer      Mailer
	mailTimeout time.Duration
}

func NewNotificationService(store NotificationStore, users UserFinder, mailer Mailer, mailTimeout time.Duration) *NotificationService {
	if mailTimeout <= 0 {
		mailTimeout = 10 * time.Second
	}
	return &NotificationService{
		store:       store,
		users:       users,
		mailer:      mailer,
		mailTimeout: mailTimeout,
	}
}

func (s *NotificationService) Notify(ctx context.Context, userID uint, title, message string) error {
	return s.store.Create(ctx, &model.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Status:  model.NotificationUnread,
	})
}

// MaybeEmail mails the author of the entity that was acted upon, unless the
// actor is that author. Returns whether a delivery was attempted.
func (s *NotificationService) MaybeEmail(ctx context.Context, actorID, authorID uint, req MailRequest) (bool, error) {
	if actorID == authorID {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()

	recipient, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return true, fmt.Errorf("resolve recipient %d: %w", authorID, err)
	}

	html, err := RenderMail(req.Template, req.Data)
	if err != nil {
		return true, fmt.Errorf("render %s: %w", req.Template, err)
	}

	return true, s.mailer.Send(ctx, MailMessage{
		To:      recipient.Email,
		ToName:  recipient.Name,
		Subject: req.Subject,
		HTML:    html,
	})
}
