package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jo-hoe/agerestore/internal/backend/database"
	"github.com/jo-hoe/agerestore/internal/journey"
	"github.com/jo-hoe/agerestore/internal/metrics"
)

// MoodEmojis are the moods a photo can be tagged with
var MoodEmojis = []string{"😊", "😢", "😴", "😤", "😍"}

const maxMoodNoteLength = 500

type PhotoSubmission struct {
	Image     []byte
	FileName  string
	MoodEmoji string
	MoodNote  string
}

// UploadPhoto stores the photo for the caller's current slot. The upload is
// tagged with the slot date, which equals today's date in loc.
func (s *CoreService) UploadPhoto(ctx context.Context, userID string, loc *time.Location, submission PhotoSubmission) (*journey.Upload, error) {
	upload, err := s.uploadPhoto(ctx, userID, loc, submission)
	metrics.RecordUpload(uploadOutcome(err))
	return upload, err
}

func (s *CoreService) uploadPhoto(ctx context.Context, userID string, loc *time.Location, submission PhotoSubmission) (*journey.Upload, error) {
	moodNote := strings.TrimSpace(submission.MoodNote)
	if submission.MoodEmoji != "" && !slices.Contains(MoodEmojis, submission.MoodEmoji) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMood, submission.MoodEmoji)
	}
	if utf8.RuneCountInString(moodNote) > maxMoodNoteLength {
		return nil, fmt.Errorf("%w: mood note longer than %d characters", ErrInvalidInput, maxMoodNoteLength)
	}
	if len(submission.Image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidPhoto)
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != database.UserApproved {
		return nil, ErrNotApproved
	}

	view, _, err := s.loadJourney(ctx, user, loc)
	if err != nil {
		return nil, err
	}
	current, err := journey.CurrentSlot(view.StartDate, view.Today)
	if err != nil {
		return nil, err
	}
	slot := view.Slots[current-1]
	if slot.Filled() {
		return nil, fmt.Errorf("day %d: %w", current, ErrDuplicateUpload)
	}
	slotDate := slot.Date.String()

	release, err := s.guard.Acquire(ctx, userID, slotDate)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	processed, err := s.pipeline.Execute(submission.Image)
	metrics.ObservePipeline(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if len(processed) > s.maxPhotoBytes() {
		return nil, fmt.Errorf("%w: %d bytes", ErrPhotoTooLarge, len(processed))
	}

	record := &database.Upload{
		UserID:      userID,
		UploadDate:  slotDate,
		Image:       processed,
		ContentType: http.DetectContentType(processed),
		FileName:    submission.FileName,
		MoodEmoji:   submission.MoodEmoji,
		MoodNote:    moodNote,
		CreatedAt:   s.clock(),
	}
	if _, err := s.databaseService.CreateUpload(ctx, record); err != nil {
		return nil, err
	}

	slog.Info("photo uploaded",
		"user_id", userID,
		"day", current,
		"upload_date", slotDate,
		"size_bytes", len(processed))

	uploaded := toJourneyUploads([]*database.Upload{record})[0]
	return &uploaded, nil
}

func (s *CoreService) maxPhotoBytes() int {
	if s.config.MaxPhotoBytes > 0 {
		return s.config.MaxPhotoBytes
	}
	return 1024 * 1024
}

func uploadOutcome(err error) string {
	switch {
	case err == nil:
		return "stored"
	case errors.Is(err, ErrDuplicateUpload), errors.Is(err, ErrUploadInProgress):
		return "duplicate"
	case errors.Is(err, ErrNotApproved), errors.Is(err, journey.ErrJourneyNotStarted), errors.Is(err, journey.ErrJourneyCompleted):
		return "not_eligible"
	case errors.Is(err, ErrInvalidPhoto), errors.Is(err, ErrPhotoTooLarge):
		return "rejected_photo"
	case errors.Is(err, ErrInvalidMood), errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

// Photo returns a stored photo to its owner or an admin
func (s *CoreService) Photo(ctx context.Context, requester Identity, photoID string) (*database.Upload, error) {
	upload, err := s.databaseService.GetUploadByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, fmt.Errorf("photo %s: %w", photoID, ErrNotFound)
	}
	if upload.UserID != requester.UserID && !s.IsAdmin(requester.Email) {
		return nil, ErrForbidden
	}
	return upload, nil
}

// Thumbnail renders a small JPEG of a stored photo
func (s *CoreService) Thumbnail(ctx context.Context, requester Identity, photoID string) ([]byte, error) {
	upload, err := s.Photo(ctx, requester, photoID)
	if err != nil {
		return nil, err
	}
	thumbnail, err := s.thumbnailer.Execute(upload.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to render thumbnail for %s: %w", photoID, err)
	}
	return thumbnail, nil
}
