package backend

import (
	"net/http"

	"github.com/jo-hoe/agerestore/internal/backend/database"
	"github.com/jo-hoe/agerestore/internal/core"
	"github.com/labstack/echo/v4"
)

type userStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type notificationStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type decisionRequest struct {
	Status       string `json:"status" validate:"required"`
	AdminMessage string `json:"adminMessage" validate:"max=2000"`
}

func (s *APIService) handleListUsers(c echo.Context) error {
	users, err := s.coreService.ListUsers(c.Request().Context(), core.UserFilter{
		Query:  c.QueryParam("q"),
		Status: database.UserStatus(c.QueryParam("status")),
		SortBy: c.QueryParam("sort"),
		Order:  c.QueryParam("order"),
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (s *APIService) handleUserDetail(c echo.Context) error {
	detail, err := s.coreService.UserDetail(c.Request().Context(), c.Param("id"), s.location(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (s *APIService) handleSetUserStatus(c echo.Context) error {
	request := new(userStatusRequest)
	if err := bindAndValidate(c, request); err != nil {
		return err
	}
	user, err := s.coreService.SetUserStatus(c.Request().Context(), c.Param("id"), database.UserStatus(request.Status))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *APIService) handleListNotifications(c echo.Context) error {
	notifications, err := s.coreService.ListNotifications(c.Request().Context(), database.NotificationType(c.QueryParam("type")))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, notifications)
}

func (s *APIService) handlePendingCount(c echo.Context) error {
	count, err := s.coreService.PendingCount(c.Request().Context())
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}

func (s *APIService) handleSetNotificationStatus(c echo.Context) error {
	request := new(notificationStatusRequest)
	if err := bindAndValidate(c, request); err != nil {
		return err
	}
	notification, err := s.coreService.SetNotificationStatus(c.Request().Context(), c.Param("id"),
		database.NotificationStatus(request.Status))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, notification)
}

func (s *APIService) handleRefundDecision(c echo.Context) error {
	request := new(decisionRequest)
	if err := bindAndValidate(c, request); err != nil {
		return err
	}
	notification, err := s.coreService.SetRefundStatus(c.Request().Context(), c.Param("id"), request.Status, request.AdminMessage)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, notification)
}

func (s *APIService) handleDeletionDecision(c echo.Context) error {
	request := new(decisionRequest)
	if err := bindAndValidate(c, request); err != nil {
		return err
	}
	notification, err := s.coreService.SetDeletionStatus(c.Request().Context(), c.Param("id"), request.Status, request.AdminMessage)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, notification)
}

func (s *APIService) handleClearResolved(c echo.Context) error {
	removed, err := s.coreService.ClearResolved(c.Request().Context())
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"removed": removed})
}
