package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"github.com/TienDattttt/shoppi-sub010/internal/push"
	"github.com/gofiber/fiber/v2"
)

// DispatchService delivers a notification intent to device endpoints.
type DispatchService interface {
	Dispatch(ctx context.Context, intent domain.NotificationIntent, recipients []domain.DeviceEndpoint) (domain.BatchOutcome, error)
	DispatchToUsers(ctx context.Context, intent domain.NotificationIntent, userIDs []string) (domain.BatchOutcome, error)
}

// RoomInspector exposes read-only tracking room state.
type RoomInspector interface {
	RoomExists(shipmentID string) bool
	ObserverIDs(shipmentID string) []string
}

type DispatchHandler struct {
	dispatcher DispatchService
	rooms      RoomInspector
}

func NewDispatchHandler(dispatcher DispatchService, rooms RoomInspector) (*DispatchHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if rooms == nil {
		return nil, fmt.Errorf("room inspector is required")
	}
	return &DispatchHandler{dispatcher: dispatcher, rooms: rooms}, nil
}

func RegisterDispatchRoutes(router fiber.Router, dispatcher DispatchService, rooms RoomInspector) error {
	h, err := NewDispatchHandler(dispatcher, rooms)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications/dispatch", h.DispatchNotification)
	v1.Get("/shipments/:shipmentId/observers", h.GetShipmentObservers)

	return nil
}

type hintsRequest struct {
	Sound        string `json:"sound,omitempty"`
	BadgeCount   *int   `json:"badgeCount,omitempty"`
	ClickAction  string `json:"clickAction,omitempty"`
	Icon         string `json:"icon,omitempty"`
	HighPriority bool   `json:"highPriority,omitempty"`
}

type endpointRequest struct {
	Token    string `json:"token"`
	UserID   string `json:"userId,omitempty"`
	Platform string `json:"platform"`
}

type dispatchRequest struct {
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Hints     *hintsRequest     `json:"hints,omitempty"`
	Endpoints []endpointRequest `json:"endpoints,omitempty"`
	UserIDs   []string          `json:"userIds,omitempty"`
}

type dispatchResponse struct {
	SuccessCount  int      `json:"successCount"`
	FailureCount  int      `json:"failureCount"`
	InvalidTokens []string `json:"invalidTokens"`
}

type observersResponse struct {
	ShipmentID    string   `json:"shipmentId"`
	Exists        bool     `json:"exists"`
	ObserverCount int      `json:"observerCount"`
	ObserverIDs   []string `json:"observerIds"`
}

func (h *DispatchHandler) DispatchNotification(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if len(req.Endpoints) == 0 && len(req.UserIDs) == 0 {
		return toHTTPError(fmt.Errorf("%w: endpoints or userIds is required", domain.ErrValidation))
	}
	if len(req.Endpoints) > 0 && len(req.UserIDs) > 0 {
		return toHTTPError(fmt.Errorf("%w: endpoints and userIds are mutually exclusive", domain.ErrValidation))
	}

	intent := domain.NotificationIntent{
		Title: strings.TrimSpace(req.Title),
		Body:  strings.TrimSpace(req.Body),
		Data:  req.Data,
	}
	if req.Hints != nil {
		intent.Hints = &domain.PlatformHints{
			Sound:        req.Hints.Sound,
			BadgeCount:   req.Hints.BadgeCount,
			ClickAction:  req.Hints.ClickAction,
			Icon:         req.Hints.Icon,
			HighPriority: req.Hints.HighPriority,
		}
	}

	var (
		batch domain.BatchOutcome
		err   error
	)
	if len(req.Endpoints) > 0 {
		endpoints, convErr := requestToEndpoints(req.Endpoints)
		if convErr != nil {
			return toHTTPError(convErr)
		}
		batch, err = h.dispatcher.Dispatch(c.Context(), intent, endpoints)
	} else {
		batch, err = h.dispatcher.DispatchToUsers(c.Context(), intent, req.UserIDs)
	}
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(dispatchResponse{
		SuccessCount:  batch.SuccessCount,
		FailureCount:  batch.FailureCount,
		InvalidTokens: invalidTokens(batch),
	})
}

func (h *DispatchHandler) GetShipmentObservers(c *fiber.Ctx) error {
	shipmentID := strings.TrimSpace(c.Params("shipmentId"))
	if shipmentID == "" {
		return toHTTPError(fmt.Errorf("%w: shipmentId is required", domain.ErrValidation))
	}

	ids := h.rooms.ObserverIDs(shipmentID)
	if ids == nil {
		ids = []string{}
	}

	return c.Status(fiber.StatusOK).JSON(observersResponse{
		ShipmentID:    shipmentID,
		Exists:        h.rooms.RoomExists(shipmentID),
		ObserverCount: len(ids),
		ObserverIDs:   ids,
	})
}

func requestToEndpoints(reqs []endpointRequest) ([]domain.DeviceEndpoint, error) {
	endpoints := make([]domain.DeviceEndpoint, 0, len(reqs))
	for _, item := range reqs {
		platform, err := domain.ParsePlatformFromString(item.Platform)
		if err != nil {
			return nil, err
		}

		endpoint := domain.DeviceEndpoint{
			Token:    strings.TrimSpace(item.Token),
			UserID:   strings.TrimSpace(item.UserID),
			Platform: platform,
		}
		if err := endpoint.Validate(); err != nil {
			return nil, err
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, nil
}

func invalidTokens(batch domain.BatchOutcome) []string {
	tokens := domain.EndpointTokens(batch.InvalidEndpoints)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

func toHTTPError(err error) error {
	var providerErr *push.ProviderError
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.As(err, &providerErr), errors.Is(err, push.ErrProviderUnavailable):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
