package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrDuplicateUpload is returned when a user already has an upload for the given date.
	ErrDuplicateUpload = errors.New("upload already exists for this date")
	ErrUserExists      = errors.New("user already exists")
)

type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	CreateUser(ctx context.Context, user *User) error
	// GetUserByID returns nil without error when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUsers(ctx context.Context) ([]*User, error)
	UpdateUserStatus(ctx context.Context, id string, status UserStatus, approvedAt *time.Time) error
	UpdateUserProfile(ctx context.Context, id string, name string, gender string, age *int) error
	// SetUserAvatar stores the avatar image and points the user's avatar URL at it.
	SetUserAvatar(ctx context.Context, avatar *Avatar, avatarURL string) error
	// GetUserAvatar returns nil without error when the user has no stored avatar.
	GetUserAvatar(ctx context.Context, userID string) (*Avatar, error)

	// CreateUpload enforces one upload per (user, date) and returns ErrDuplicateUpload otherwise.
	CreateUpload(ctx context.Context, upload *Upload) (string, error)
	// GetUploadsByUser returns upload metadata ordered by upload date, without image bytes.
	GetUploadsByUser(ctx context.Context, userID string) ([]*Upload, error)
	// GetUploadByID returns the upload including image bytes, or nil when missing.
	GetUploadByID(ctx context.Context, id string) (*Upload, error)
	CountUploadsByUser(ctx context.Context) (map[string]int, error)

	CreateNotification(ctx context.Context, notification *Notification) (string, error)
	// GetNotifications lists notifications newest first; an empty type lists all.
	GetNotifications(ctx context.Context, notificationType NotificationType) ([]*Notification, error)
	// GetNotificationsByUser lists one user's notifications newest first; an empty type lists all.
	GetNotificationsByUser(ctx context.Context, userID string, notificationType NotificationType) ([]*Notification, error)
	GetNotificationByID(ctx context.Context, id string) (*Notification, error)
	UpdateNotification(ctx context.Context, notification *Notification) error
	CountPendingNotifications(ctx context.Context) (int, error)
	DeleteResolvedNotifications(ctx context.Context) (int64, error)
}
