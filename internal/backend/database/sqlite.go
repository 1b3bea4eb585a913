package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Fixed-width UTC timestamps keep lexical ORDER BY equal to chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			avatar_url TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			registration_date TEXT NOT NULL DEFAULT '',
			approved_at TEXT,
			gender TEXT NOT NULL DEFAULT '',
			age INTEGER,
			timezone TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS uploads (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			upload_date TEXT NOT NULL,
			image BLOB NOT NULL,
			content_type TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			mood_emoji TEXT NOT NULL DEFAULT '',
			mood_note TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			UNIQUE (user_id, upload_date)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			user_email TEXT NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			refund_status TEXT NOT NULL DEFAULT '',
			deletion_status TEXT NOT NULL DEFAULT '',
			admin_message TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS avatars (
			user_id TEXT PRIMARY KEY,
			image BLOB NOT NULL,
			content_type TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications (user_id)`,
	}
	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return nil, err
		}
	}
	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, avatar_url, status, registration_date, approved_at, gender, age, timezone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.AvatarURL, string(user.Status), user.RegistrationDate,
		formatNullableTime(user.ApprovedAt), user.Gender, nullableInt(user.Age), user.Timezone, user.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = "id, name, email, avatar_url, status, registration_date, approved_at, gender, age, timezone, created_at"

func scanUser(scanner interface{ Scan(...any) error }) (*User, error) {
	var (
		user       User
		status     string
		approvedAt sql.NullString
		age        sql.NullInt64
		createdAt  string
	)
	if err := scanner.Scan(&user.ID, &user.Name, &user.Email, &user.AvatarURL, &status,
		&user.RegistrationDate, &approvedAt, &user.Gender, &age, &user.Timezone, &createdAt); err != nil {
		return nil, err
	}
	user.Status = UserStatus(status)
	if approvedAt.Valid && approvedAt.String != "" {
		t, err := time.Parse(timeLayout, approvedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse approved_at of user %s: %w", user.ID, err)
		}
		user.ApprovedAt = &t
	}
	if age.Valid {
		v := int(age.Int64)
		user.Age = &v
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of user %s: %w", user.ID, err)
	}
	user.CreatedAt = t
	return &user, nil
}

func (s *SQLiteDatabase) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteDatabase) GetUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *SQLiteDatabase) UpdateUserStatus(ctx context.Context, id string, status UserStatus, approvedAt *time.Time) error {
	var (
		res sql.Result
		err error
	)
	if approvedAt != nil {
		res, err = s.db.ExecContext(ctx, "UPDATE users SET status = ?, approved_at = ? WHERE id = ?",
			string(status), formatNullableTime(approvedAt), id)
	} else {
		res, err = s.db.ExecContext(ctx, "UPDATE users SET status = ? WHERE id = ?", string(status), id)
	}
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return expectOneRow(res, "user", id)
}

func (s *SQLiteDatabase) UpdateUserProfile(ctx context.Context, id string, name string, gender string, age *int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET name = ?, gender = ?, age = ? WHERE id = ?",
		name, gender, nullableInt(age), id)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return expectOneRow(res, "user", id)
}

func (s *SQLiteDatabase) CreateUpload(ctx context.Context, upload *Upload) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", err
	}
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO uploads (id, user_id, upload_date, image, content_type, file_name, mood_emoji, mood_note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, upload.UserID, upload.UploadDate, upload.Image, upload.ContentType, upload.FileName,
		upload.MoodEmoji, upload.MoodNote, upload.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateUpload
		}
		return "", fmt.Errorf("insert upload: %w", err)
	}
	upload.ID = id
	return id, nil
}

func (s *SQLiteDatabase) GetUploadsByUser(ctx context.Context, userID string) ([]*Upload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, upload_date, content_type, file_name, mood_emoji, mood_note, created_at
		FROM uploads WHERE user_id = ? ORDER BY upload_date ASC, created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var uploads []*Upload
	for rows.Next() {
		var (
			upload    Upload
			createdAt string
		)
		if err := rows.Scan(&upload.ID, &upload.UserID, &upload.UploadDate, &upload.ContentType,
			&upload.FileName, &upload.MoodEmoji, &upload.MoodNote, &createdAt); err != nil {
			return nil, err
		}
		if upload.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of upload %s: %w", upload.ID, err)
		}
		uploads = append(uploads, &upload)
	}
	return uploads, rows.Err()
}

func (s *SQLiteDatabase) GetUploadByID(ctx context.Context, id string) (*Upload, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, upload_date, image, content_type, file_name, mood_emoji, mood_note, created_at
		FROM uploads WHERE id = ?`, id)
	var (
		upload    Upload
		createdAt string
	)
	err := row.Scan(&upload.ID, &upload.UserID, &upload.UploadDate, &upload.Image, &upload.ContentType,
		&upload.FileName, &upload.MoodEmoji, &upload.MoodNote, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if upload.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at of upload %s: %w", upload.ID, err)
	}
	return &upload, nil
}

func (s *SQLiteDatabase) CountUploadsByUser(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id, COUNT(*) FROM uploads GROUP BY user_id")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			userID string
			count  int
		)
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		counts[userID] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteDatabase) CreateNotification(ctx context.Context, notification *Notification) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", err
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	if notification.Status == "" {
		notification.Status = NotificationPending
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, user_name, user_email, type, message, status,
			refund_status, deletion_status, admin_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, notification.UserID, notification.UserName, notification.UserEmail, string(notification.Type),
		notification.Message, string(notification.Status), notification.RefundStatus, notification.DeletionStatus,
		notification.AdminMessage, notification.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	notification.ID = id
	return id, nil
}

const notificationColumns = `id, user_id, user_name, user_email, type, message, status,
	refund_status, deletion_status, admin_message, created_at`

func scanNotification(scanner interface{ Scan(...any) error }) (*Notification, error) {
	var (
		n         Notification
		kind      string
		status    string
		createdAt string
	)
	if err := scanner.Scan(&n.ID, &n.UserID, &n.UserName, &n.UserEmail, &kind, &n.Message, &status,
		&n.RefundStatus, &n.DeletionStatus, &n.AdminMessage, &createdAt); err != nil {
		return nil, err
	}
	n.Type = NotificationType(kind)
	n.Status = NotificationStatus(status)
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of notification %s: %w", n.ID, err)
	}
	n.CreatedAt = t
	return &n, nil
}

func (s *SQLiteDatabase) GetNotifications(ctx context.Context, notificationType NotificationType) ([]*Notification, error) {
	return s.queryNotifications(ctx, "", notificationType)
}

func (s *SQLiteDatabase) GetNotificationsByUser(ctx context.Context, userID string, notificationType NotificationType) ([]*Notification, error) {
	if userID == "" {
		return nil, nil
	}
	return s.queryNotifications(ctx, userID, notificationType)
}

// queryNotifications filters by user and type when they are set; rowid breaks
// ties between notifications created in the same instant
func (s *SQLiteDatabase) queryNotifications(ctx context.Context, userID string, notificationType NotificationType) ([]*Notification, error) {
	var (
		conditions []string
		args       []any
	)
	if userID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, userID)
	}
	if notificationType != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(notificationType))
	}

	query := "SELECT " + notificationColumns + " FROM notifications"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var notifications []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *SQLiteDatabase) GetNotificationByID(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *SQLiteDatabase) UpdateNotification(ctx context.Context, notification *Notification) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, refund_status = ?, deletion_status = ?, admin_message = ?
		WHERE id = ?`,
		string(notification.Status), notification.RefundStatus, notification.DeletionStatus,
		notification.AdminMessage, notification.ID)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return expectOneRow(res, "notification", notification.ID)
}

func (s *SQLiteDatabase) CountPendingNotifications(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications WHERE status = ?",
		string(NotificationPending)).Scan(&count)
	return count, err
}

func (s *SQLiteDatabase) DeleteResolvedNotifications(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE status = ?", string(NotificationResolved))
	if err != nil {
		return 0, fmt.Errorf("delete resolved notifications: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteDatabase) SetUserAvatar(ctx context.Context, avatar *Avatar, avatarURL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin avatar update: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	res, err := tx.ExecContext(ctx, "UPDATE users SET avatar_url = ? WHERE id = ?", avatarURL, avatar.UserID)
	if err != nil {
		return fmt.Errorf("update avatar url: %w", err)
	}
	if err := expectOneRow(res, "user", avatar.UserID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO avatars (user_id, image, content_type, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET image = excluded.image,
			content_type = excluded.content_type, updated_at = excluded.updated_at`,
		avatar.UserID, avatar.Image, avatar.ContentType, avatar.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("store avatar: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteDatabase) GetUserAvatar(ctx context.Context, userID string) (*Avatar, error) {
	var (
		avatar    Avatar
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, image, content_type, updated_at FROM avatars WHERE user_id = ?", userID).
		Scan(&avatar.UserID, &avatar.Image, &avatar.ContentType, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if avatar.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at of avatar %s: %w", userID, err)
	}
	return &avatar, nil
}

func expectOneRow(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, sql.ErrNoRows)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
