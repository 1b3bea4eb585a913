package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jo-hoe/agerestore/internal/backend/database"
	"github.com/jo-hoe/agerestore/internal/mail"
)

// Identity is what the identity provider tells us about the caller
type Identity struct {
	UserID    string
	Email     string
	Name      string
	AvatarURL string
}

// RegisterUser returns the caller's profile, creating a pending one on first
// contact. created reports whether a new profile was stored.
func (s *CoreService) RegisterUser(ctx context.Context, identity Identity, loc *time.Location) (user *database.User, created bool, err error) {
	if identity.UserID == "" || identity.Email == "" {
		return nil, false, fmt.Errorf("%w: user id and email are required", ErrInvalidInput)
	}

	existing, err := s.databaseService.GetUserByID(ctx, identity.UserID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if loc == nil {
		loc = s.defaultLocation
	}
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.SplitN(identity.Email, "@", 2)[0]
	}
	user = &database.User{
		ID:               identity.UserID,
		Name:             name,
		Email:            identity.Email,
		AvatarURL:        identity.AvatarURL,
		Status:           database.UserPending,
		RegistrationDate: s.Today(loc).String(),
		Timezone:         loc.String(),
		CreatedAt:        s.clock(),
	}
	if err := s.databaseService.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			// lost a race with a parallel first request
			existing, getErr := s.databaseService.GetUserByID(ctx, identity.UserID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	slog.Info("user registered", "user_id", user.ID)
	s.notify(ctx, mail.NewUserForAdmins(s.admins.Emails(), user.Name, user.Email))
	s.notify(ctx, mail.Welcome(user.Email, user.Name))
	return user, true, nil
}

func (s *CoreService) Profile(ctx context.Context, userID string) (*database.User, error) {
	user, err := s.databaseService.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return user, nil
}

type ProfileUpdate struct {
	Name   string
	Gender string
	Age    *int
}

func (s *CoreService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*database.User, error) {
	name := strings.TrimSpace(update.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if update.Age != nil && (*update.Age < 1 || *update.Age > 150) {
		return nil, fmt.Errorf("%w: age %d out of range", ErrInvalidInput, *update.Age)
	}
	if _, err := s.Profile(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.databaseService.UpdateUserProfile(ctx, userID, name, strings.TrimSpace(update.Gender), update.Age); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// SetUserStatus changes the approval state. The first approval stamps the
// approval instant, which anchors the journey and never changes afterwards.
func (s *CoreService) SetUserStatus(ctx context.Context, userID string, status database.UserStatus) (*database.User, error) {
	switch status {
	case database.UserPending, database.UserApproved, database.UserDisapproved:
	default:
		return nil, fmt.Errorf("%w: user status %q", ErrInvalidTransition, status)
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var approvedAt *time.Time
	if status == database.UserApproved && user.ApprovedAt == nil {
		now := s.clock()
		approvedAt = &now
	}
	if err := s.databaseService.UpdateUserStatus(ctx, userID, status, approvedAt); err != nil {
		return nil, err
	}

	if status != user.Status && status != database.UserPending {
		s.notify(ctx, mail.AccountStatus(user.Email, user.Name, status == database.UserApproved))
	}
	slog.Info("user status changed", "user_id", userID, "from", user.Status, "to", status)
	return s.Profile(ctx, userID)
}

type UserFilter struct {
	Query  string
	Status database.UserStatus
	SortBy string // name, email, status, registrationDate
	Order  string // asc, desc
}

type UserSummary struct {
	*database.User
	UploadCount int `json:"uploadCount"`
}

// ListUsers filters, sorts and annotates users with their upload counts
func (s *CoreService) ListUsers(ctx context.Context, filter UserFilter) ([]UserSummary, error) {
	users, err := s.databaseService.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.databaseService.CountUploadsByUser(ctx)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	summaries := make([]UserSummary, 0, len(users))
	for _, user := range users {
		if filter.Status != "" && user.Status != filter.Status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(user.Name), query) &&
			!strings.Contains(strings.ToLower(user.Email), query) {
			continue
		}
		summaries = append(summaries, UserSummary{User: user, UploadCount: counts[user.ID]})
	}

	less, err := userLess(filter.SortBy)
	if err != nil {
		return nil, err
	}
	desc := strings.EqualFold(filter.Order, "desc")
	sort.SliceStable(summaries, func(i, j int) bool {
		if desc {
			return less(summaries[j].User, summaries[i].User)
		}
		return less(summaries[i].User, summaries[j].User)
	})
	return summaries, nil
}

func userLess(sortBy string) (func(a, b *database.User) bool, error) {
	switch sortBy {
	case "name":
		return func(a, b *database.User) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }, nil
	case "email":
		return func(a, b *database.User) bool { return strings.ToLower(a.Email) < strings.ToLower(b.Email) }, nil
	case "status":
		return func(a, b *database.User) bool { return a.Status < b.Status }, nil
	case "", "registrationDate":
		return func(a, b *database.User) bool {
			if a.RegistrationDate != b.RegistrationDate {
				return a.RegistrationDate < b.RegistrationDate
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalidInput, sortBy)
	}
}
