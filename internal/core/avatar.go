package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jo-hoe/agerestore/internal/backend/database"
)

func avatarURL(userID string, version int64) string {
	return "/api/avatars/" + userID + "?v=" + strconv.FormatInt(version, 10)
}

// UpdateAvatar runs the image through the avatar pipeline, stores it and
// points the profile's avatar URL at the stored copy
func (s *CoreService) UpdateAvatar(ctx context.Context, userID string, image []byte) (*database.User, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidPhoto)
	}
	if _, err := s.Profile(ctx, userID); err != nil {
		return nil, err
	}

	processed, err := s.avatarPipeline.Execute(image)
	if err != nil {
		slog.Warn("avatar rejected by pipeline", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if len(processed) > s.maxPhotoBytes() {
		return nil, fmt.Errorf("%w: %d bytes", ErrPhotoTooLarge, len(processed))
	}

	now := s.clock()
	avatar := &database.Avatar{
		UserID:      userID,
		Image:       processed,
		ContentType: http.DetectContentType(processed),
		UpdatedAt:   now,
	}
	// the version query busts client caches of the previous avatar
	if err := s.databaseService.SetUserAvatar(ctx, avatar, avatarURL(userID, now.Unix())); err != nil {
		return nil, err
	}
	slog.Info("avatar updated", "user_id", userID, "bytes", len(processed))
	return s.Profile(ctx, userID)
}

// Avatar returns a stored avatar to its owner or an admin
func (s *CoreService) Avatar(ctx context.Context, requester Identity, userID string) (*database.Avatar, error) {
	if userID != requester.UserID && !s.IsAdmin(requester.Email) {
		return nil, ErrForbidden
	}
	avatar, err := s.databaseService.GetUserAvatar(ctx, userID)
	if err != nil {
		return nil, err
	}
	if avatar == nil {
		return nil, fmt.Errorf("avatar of %s: %w", userID, ErrNotFound)
	}
	return avatar, nil
}
