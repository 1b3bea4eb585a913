package core

import (
	"errors"

	"github.com/jo-hoe/agerestore/internal/backend/database"
	"github.com/jo-hoe/agerestore/internal/uploadguard"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNotApproved       = errors.New("account is not approved")
	ErrForbidden         = errors.New("not allowed to access this resource")
	ErrInvalidTransition = errors.New("invalid status")
	ErrPhotoTooLarge     = errors.New("processed photo exceeds the size limit")
	ErrInvalidPhoto      = errors.New("photo could not be processed")
	ErrInvalidMood       = errors.New("unsupported mood emoji")
	ErrInvalidInput      = errors.New("invalid input")

	// ErrDuplicateUpload is the storage-level one-upload-per-day violation
	ErrDuplicateUpload = database.ErrDuplicateUpload
	// ErrUploadInProgress means a concurrent submission for the same day holds the guard
	ErrUploadInProgress = uploadguard.ErrLocked
)
