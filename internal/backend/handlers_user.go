package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/agerestore/internal/backend/database"
	"github.com/jo-hoe/agerestore/internal/core"
	"github.com/labstack/echo/v4"
)

type updateProfileRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Gender string `json:"gender" validate:"max=32"`
	Age    *int   `json:"age" validate:"omitempty,min=1,max=150"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

func (s *APIService) handleRegister(c echo.Context) error {
	user, created, err := s.coreService.RegisterUser(c.Request().Context(), identityFrom(c), s.location(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, user)
}

func (s *APIService) handleGetProfile(c echo.Context) error {
	user, err := s.coreService.Profile(c.Request().Context(), identityFrom(c).UserID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *APIService) handleUpdateProfile(c echo.Context) error {
	request := new(updateProfileRequest)
	if err := bindAndValidate(c, request); err != nil {
		return err
	}
	user, err := s.coreService.UpdateProfile(c.Request().Context(), identityFrom(c).UserID, core.ProfileUpdate{
		Name:   request.Name,
		Gender: request.Gender,
		Age:    request.Age,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *APIService) handleDashboard(c echo.Context) error {
	dashboard, err := s.coreService.Dashboard(c.Request().Context(), identityFrom(c).UserID, s.location(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, dashboard)
}

func (s *APIService) handleUploadStatus(c echo.Context) error {
	status, err := s.coreService.UploadStatus(c.Request().Context(), identityFrom(c).UserID, s.location(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *APIService) handleUpload(c echo.Context) error {
	data, fileName, err := s.readImageFile(c, "image")
	if err != nil {
		return err
	}

	upload, err := s.coreService.UploadPhoto(c.Request().Context(), identityFrom(c).UserID, s.location(c), core.PhotoSubmission{
		Image:     data,
		FileName:  fileName,
		MoodEmoji: c.FormValue("moodEmoji"),
		MoodNote:  c.FormValue("moodNote"),
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, upload)
}

func (s *APIService) handleUpdateAvatar(c echo.Context) error {
	data, _, err := s.readImageFile(c, "image")
	if err != nil {
		return err
	}
	user, err := s.coreService.UpdateAvatar(c.Request().Context(), identityFrom(c).UserID, data)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *APIService) handleAvatar(c echo.Context) error {
	avatar, err := s.coreService.Avatar(c.Request().Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	setPrivateCache(c)
	return c.Blob(http.StatusOK, avatar.ContentType, avatar.Image)
}

// readImageFile reads one multipart file capped at the configured upload limit
func (s *APIService) readImageFile(c echo.Context, field string) ([]byte, string, error) {
	limit := s.config.MaxUploadBytes
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, limit+(1<<20))

	fileHeader, err := c.FormFile(field)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		}
		slog.Warn("upload without image", "status", http.StatusBadRequest, "route", c.Path(), "error", err)
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "missing image file")
	}
	if fileHeader.Size > limit {
		return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("image is %d bytes, limit is %d", fileHeader.Size, limit))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", toHTTPError(c, fmt.Errorf("failed to open uploaded file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", toHTTPError(c, fmt.Errorf("failed to read uploaded file: %w", err))
	}
	if int64(len(data)) > limit {
		return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "upload exceeds size limit")
	}
	return data, fileHeader.Filename, nil
}

func (s *APIService) handleRefundRequest(c echo.Context) error {
	request := new(reasonRequest)
	if err := bindAndValidate(c, request); err != nil {
		return err
	}
	notification, err := s.coreService.RequestRefund(c.Request().Context(), identityFrom(c).UserID, request.Reason)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, notification)
}

func (s *APIService) handleDeletionRequest(c echo.Context) error {
	request := new(reasonRequest)
	if err := bindAndValidate(c, request); err != nil {
		return err
	}
	notification, err := s.coreService.RequestAccountDeletion(c.Request().Context(), identityFrom(c).UserID, request.Reason)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, notification)
}

func (s *APIService) handleMyRequests(c echo.Context) error {
	requests, err := s.coreService.MyRequests(c.Request().Context(), identityFrom(c).UserID,
		database.NotificationType(c.QueryParam("type")))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, requests)
}

func (s *APIService) handlePhoto(c echo.Context) error {
	upload, err := s.coreService.Photo(c.Request().Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	setPrivateCache(c)
	return c.Blob(http.StatusOK, upload.ContentType, upload.Image)
}

func (s *APIService) handleThumbnail(c echo.Context) error {
	thumbnail, err := s.coreService.Thumbnail(c.Request().Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	setPrivateCache(c)
	return c.Blob(http.StatusOK, "image/jpeg", thumbnail)
}

// stored photos are immutable and per-user
func setPrivateCache(c echo.Context) {
	c.Response().Header().Set("Cache-Control", "private, max-age=86400")
}
