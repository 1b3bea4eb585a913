package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jo-hoe/agerestore/internal/backend/database"
	"github.com/jo-hoe/agerestore/internal/mail"
	"github.com/jo-hoe/agerestore/internal/metrics"
)

// Refund decision states
const (
	RefundPending     = "pending"
	RefundUnderReview = "under_review"
	RefundAccepted    = "accepted"
	RefundRejected    = "rejected"
)

// Account deletion decision states
const (
	DeletionPending     = "pending"
	DeletionUnderReview = "under_review"
	DeletionApproved    = "approved"
	DeletionRejected    = "rejected"
)

const maxRequestReasonLength = 2000

func (s *CoreService) RequestRefund(ctx context.Context, userID, reason string) (*database.Notification, error) {
	notification, err := s.createRequest(ctx, userID, reason, database.NotificationRefund)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, mail.RefundRequestForAdmins(s.admins.Emails(), notification.UserName, notification.UserEmail, notification.Message))
	return notification, nil
}

func (s *CoreService) RequestAccountDeletion(ctx context.Context, userID, reason string) (*database.Notification, error) {
	return s.createRequest(ctx, userID, reason, database.NotificationDeletion)
}

func (s *CoreService) createRequest(ctx context.Context, userID, reason string, kind database.NotificationType) (*database.Notification, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a reason is required", ErrInvalidInput)
	}
	if len(reason) > maxRequestReasonLength {
		return nil, fmt.Errorf("%w: reason longer than %d characters", ErrInvalidInput, maxRequestReasonLength)
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	notification := &database.Notification{
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		Type:      kind,
		Message:   reason,
		Status:    database.NotificationPending,
		CreatedAt: s.clock(),
	}
	switch kind {
	case database.NotificationRefund:
		notification.RefundStatus = RefundPending
	case database.NotificationDeletion:
		notification.DeletionStatus = DeletionPending
	}
	if _, err := s.databaseService.CreateNotification(ctx, notification); err != nil {
		return nil, err
	}

	metrics.RecordNotification(string(kind))
	slog.Info("request created", "type", kind, "user_id", user.ID, "notification_id", notification.ID)
	return notification, nil
}

func (s *CoreService) getNotification(ctx context.Context, id string) (*database.Notification, error) {
	notification, err := s.databaseService.GetNotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return notification, nil
}

// SetRefundStatus records a refund decision. Accepting or rejecting resolves
// the notification and informs the user.
func (s *CoreService) SetRefundStatus(ctx context.Context, id, status, adminMessage string) (*database.Notification, error) {
	switch status {
	case RefundPending, RefundUnderReview, RefundAccepted, RefundRejected:
	default:
		return nil, fmt.Errorf("%w: refund status %q", ErrInvalidTransition, status)
	}

	notification, err := s.getNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Type != database.NotificationRefund {
		return nil, fmt.Errorf("%w: notification %s is not a refund request", ErrInvalidTransition, id)
	}

	decided := status == RefundAccepted || status == RefundRejected
	notification.RefundStatus = status
	notification.AdminMessage = strings.TrimSpace(adminMessage)
	notification.Status = database.NotificationReviewed
	if decided {
		notification.Status = database.NotificationResolved
	}
	if err := s.databaseService.UpdateNotification(ctx, notification); err != nil {
		return nil, err
	}

	if decided {
		s.notify(ctx, mail.RefundDecision(notification.UserEmail, notification.UserName,
			status == RefundAccepted, notification.AdminMessage))
	}
	return notification, nil
}

// SetDeletionStatus records an account deletion decision
func (s *CoreService) SetDeletionStatus(ctx context.Context, id, status, adminMessage string) (*database.Notification, error) {
	switch status {
	case DeletionPending, DeletionUnderReview, DeletionApproved, DeletionRejected:
	default:
		return nil, fmt.Errorf("%w: deletion status %q", ErrInvalidTransition, status)
	}

	notification, err := s.getNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Type != database.NotificationDeletion {
		return nil, fmt.Errorf("%w: notification %s is not a deletion request", ErrInvalidTransition, id)
	}

	notification.DeletionStatus = status
	notification.AdminMessage = strings.TrimSpace(adminMessage)
	notification.Status = database.NotificationReviewed
	if status == DeletionApproved || status == DeletionRejected {
		notification.Status = database.NotificationResolved
	}
	if err := s.databaseService.UpdateNotification(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *CoreService) SetNotificationStatus(ctx context.Context, id string, status database.NotificationStatus) (*database.Notification, error) {
	switch status {
	case database.NotificationPending, database.NotificationReviewed, database.NotificationResolved:
	default:
		return nil, fmt.Errorf("%w: notification status %q", ErrInvalidTransition, status)
	}

	notification, err := s.getNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	notification.Status = status
	if err := s.databaseService.UpdateNotification(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// ListNotifications returns notifications newest first; an empty type lists all
func (s *CoreService) ListNotifications(ctx context.Context, kind database.NotificationType) ([]*database.Notification, error) {
	switch kind {
	case "", database.NotificationRefund, database.NotificationDeletion, database.NotificationGeneral:
	default:
		return nil, fmt.Errorf("%w: notification type %q", ErrInvalidInput, kind)
	}
	return s.databaseService.GetNotifications(ctx, kind)
}

// MyRequests lists the caller's own requests newest first, including the
// decision state and admin message of each
func (s *CoreService) MyRequests(ctx context.Context, userID string, kind database.NotificationType) ([]*database.Notification, error) {
	switch kind {
	case "", database.NotificationRefund, database.NotificationDeletion:
	default:
		return nil, fmt.Errorf("%w: request type %q", ErrInvalidInput, kind)
	}
	if _, err := s.Profile(ctx, userID); err != nil {
		return nil, err
	}
	notifications, err := s.databaseService.GetNotificationsByUser(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	requests := make([]*database.Notification, 0, len(notifications))
	for _, n := range notifications {
		if n.Type != database.NotificationGeneral {
			requests = append(requests, n)
		}
	}
	return requests, nil
}

func (s *CoreService) PendingCount(ctx context.Context) (int, error) {
	return s.databaseService.CountPendingNotifications(ctx)
}

// ClearResolved deletes resolved notifications and reports how many were removed
func (s *CoreService) ClearResolved(ctx context.Context) (int64, error) {
	removed, err := s.databaseService.DeleteResolvedNotifications(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("resolved notifications cleared", "count", removed)
	return removed, nil
}
