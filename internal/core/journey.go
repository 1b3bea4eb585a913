package core

import (
	"context"
	"errors"
	"time"

	"github.com/jo-hoe/agerestore/internal/backend/database"
	"github.com/jo-hoe/agerestore/internal/journey"
)

// JourneyView is the slot layout of one user as of today
type JourneyView struct {
	StartDate journey.Date     `json:"startDate"`
	Today     journey.Date     `json:"today"`
	Slots     []journey.Slot   `json:"slots"`
	Progress  journey.Progress `json:"progress"`
}

type Dashboard struct {
	User     *database.User `json:"user"`
	Approved bool           `json:"approved"`
	Journey  *JourneyView   `json:"journey,omitempty"`
}

type UserDetail struct {
	User    *database.User   `json:"user"`
	Journey JourneyView      `json:"journey"`
	Uploads []journey.Upload `json:"uploads"`
}

type UploadStatus struct {
	CurrentDay   int    `json:"currentDay,omitempty"`
	SlotDate     string `json:"slotDate,omitempty"`
	TotalDays    int    `json:"totalDays"`
	TodayFilled  bool   `json:"hasUploadedToday"`
	TotalUploads int    `json:"totalUploads"`
	NotStarted   bool   `json:"notStarted"`
	Completed    bool   `json:"completed"`
}

func photoURL(id string) string {
	return "/api/photos/" + id
}

func toJourneyUploads(uploads []*database.Upload) []journey.Upload {
	out := make([]journey.Upload, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, journey.Upload{
			ID:        u.ID,
			UserID:    u.UserID,
			Date:      u.UploadDate,
			ImageURL:  photoURL(u.ID),
			MoodEmoji: u.MoodEmoji,
			MoodNote:  u.MoodNote,
			CreatedAt: u.CreatedAt,
		})
	}
	return out
}

// startDate applies the start date priority to a stored user
func startDate(user *database.User, uploads []journey.Upload, today journey.Date, loc *time.Location) journey.Date {
	var approvedAt time.Time
	if user.ApprovedAt != nil {
		approvedAt = *user.ApprovedAt
	}
	earliest, _ := journey.EarliestUploadDate(uploads)
	registration, _ := journey.ParseDate(user.RegistrationDate)
	return journey.ComputeStartDate(approvedAt, earliest, registration, today, loc)
}

func (s *CoreService) loadJourney(ctx context.Context, user *database.User, loc *time.Location) (JourneyView, []journey.Upload, error) {
	stored, err := s.databaseService.GetUploadsByUser(ctx, user.ID)
	if err != nil {
		return JourneyView{}, nil, err
	}
	uploads := toJourneyUploads(stored)
	today := s.Today(loc)
	start := startDate(user, uploads, today, loc)
	slots := journey.BuildSlots(start, uploads, today)

	return JourneyView{
		StartDate: start,
		Today:     today,
		Slots:     slots,
		Progress:  journey.Summarize(slots, start, today),
	}, uploads, nil
}

// Dashboard returns the caller's journey. Users awaiting approval get their
// profile without slots.
func (s *CoreService) Dashboard(ctx context.Context, userID string, loc *time.Location) (*Dashboard, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	dashboard := &Dashboard{User: user, Approved: user.Status == database.UserApproved}
	if !dashboard.Approved {
		return dashboard, nil
	}

	view, _, err := s.loadJourney(ctx, user, loc)
	if err != nil {
		return nil, err
	}
	dashboard.Journey = &view
	return dashboard, nil
}

// UserDetail is the admin view of a single user, using the same slot layout
// the user sees. The user's registration timezone wins over fallback.
func (s *CoreService) UserDetail(ctx context.Context, userID string, fallback *time.Location) (*UserDetail, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, uploads, err := s.loadJourney(ctx, user, s.userLocation(user, fallback))
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: user, Journey: view, Uploads: uploads}, nil
}

func (s *CoreService) UploadStatus(ctx context.Context, userID string, loc *time.Location) (*UploadStatus, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != database.UserApproved {
		return nil, ErrNotApproved
	}

	view, uploads, err := s.loadJourney(ctx, user, loc)
	if err != nil {
		return nil, err
	}
	status := &UploadStatus{TotalDays: journey.Length, TotalUploads: len(uploads)}

	current, err := journey.CurrentSlot(view.StartDate, view.Today)
	switch {
	case errors.Is(err, journey.ErrJourneyNotStarted):
		status.NotStarted = true
	case errors.Is(err, journey.ErrJourneyCompleted):
		status.Completed = true
	case err != nil:
		return nil, err
	default:
		slot := view.Slots[current-1]
		status.CurrentDay = current
		status.SlotDate = slot.Date.String()
		status.TodayFilled = slot.Filled()
	}
	return status, nil
}

func (s *CoreService) userLocation(user *database.User, fallback *time.Location) *time.Location {
	if user.Timezone == "" {
		return fallback
	}
	return s.Location(user.Timezone)
}
