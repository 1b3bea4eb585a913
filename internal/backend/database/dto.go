package database

import "time"

type UserStatus string

const (
	UserPending     UserStatus = "pending"
	UserApproved    UserStatus = "approved"
	UserDisapproved UserStatus = "disapproved"
)

type User struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Email            string     `db:"email" json:"email"`
	AvatarURL        string     `db:"avatar_url" json:"avatarUrl,omitempty"`
	Status           UserStatus `db:"status" json:"status"`
	RegistrationDate string     `db:"registration_date" json:"registrationDate"` // YYYY-MM-DD in the user's calendar
	ApprovedAt       *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	Gender           string     `db:"gender" json:"gender,omitempty"`
	Age              *int       `db:"age" json:"age,omitempty"`
	Timezone         string     `db:"timezone" json:"timezone,omitempty"` // IANA name seen at registration
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
}

type Upload struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	UploadDate  string    `db:"upload_date" json:"uploadDate"` // YYYY-MM-DD slot date
	Image       []byte    `db:"image" json:"-"`                // nil unless explicitly loaded
	ContentType string    `db:"content_type" json:"contentType"`
	FileName    string    `db:"file_name" json:"fileName,omitempty"`
	MoodEmoji   string    `db:"mood_emoji" json:"moodEmoji,omitempty"`
	MoodNote    string    `db:"mood_note" json:"moodNote,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type Avatar struct {
	UserID      string    `db:"user_id" json:"userId"`
	Image       []byte    `db:"image" json:"-"`
	ContentType string    `db:"content_type" json:"contentType"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type NotificationType string

const (
	NotificationRefund   NotificationType = "refund_request"
	NotificationDeletion NotificationType = "account_deletion"
	NotificationGeneral  NotificationType = "general"
)

type NotificationStatus string

const (
	NotificationPending  NotificationStatus = "pending"
	NotificationReviewed NotificationStatus = "reviewed"
	NotificationResolved NotificationStatus = "resolved"
)

type Notification struct {
	ID             string             `db:"id" json:"id"`
	UserID         string             `db:"user_id" json:"userId"`
	UserName       string             `db:"user_name" json:"userName"`
	UserEmail      string             `db:"user_email" json:"userEmail"`
	Type           NotificationType   `db:"type" json:"type"`
	Message        string             `db:"message" json:"message"`
	Status         NotificationStatus `db:"status" json:"status"`
	RefundStatus   string             `db:"refund_status" json:"refundStatus,omitempty"`
	DeletionStatus string             `db:"deletion_status" json:"deletionStatus,omitempty"`
	AdminMessage   string             `db:"admin_message" json:"adminMessage,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
}
