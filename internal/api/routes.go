package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/usecase"
)

// VoiceController is the part of the voice session the kiosk API drives
type VoiceController interface {
	State() entities.VoiceState
	Toggle() error
}

// Dependencies are the components the routes operate on
type Dependencies struct {
	Order    *usecase.OrderAggregator
	Workflow *usecase.Workflow
	Voice    VoiceController
	ClientID string
}

type handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	h := &handler{deps: deps, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "drive-thru-kiosk",
		})
	})

	v1 := e.Group("/api/v1")

	// Order APIs
	v1.GET("/order", h.getOrder)
	v1.POST("/order/items", h.addItem)
	v1.PUT("/order/items/:id", h.updateQuantity)
	v1.DELETE("/order/items/:id", h.removeItem)
	v1.DELETE("/order", h.clearOrder)
	v1.POST("/order/checkout", h.checkout)

	// Voice APIs
	v1.GET("/voice", h.getVoice)
	v1.POST("/voice/toggle", h.toggleVoice)

	// Workflow APIs
	v1.GET("/workflow", h.getWorkflow)
	v1.PUT("/workflow", h.updateWorkflow)
}

func (h *handler) getOrder(c echo.Context) error {
	return c.JSON(http.StatusOK, h.orderResponse())
}

func (h *handler) addItem(c echo.Context) error {
	var req AddItemRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Failed to bind add item request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	id := req.ID
	if id == "" {
		if req.ItemID == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "missing_fields",
				Message: "Either id or item_id is required",
			})
		}
		id = entities.LineKey(req.ItemID, req.Variants, req.AddOns)
	}

	err := h.deps.Order.AddItem(entities.OrderLine{
		ID:        id,
		NameAr:    req.NameAr,
		NameEn:    req.NameEn,
		BasePrice: req.BasePrice,
		Quantity:  req.Quantity,
		Variants:  req.Variants,
		AddOns:    req.AddOns,
	})
	if errors.Is(err, domain.ErrInvalidLine) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_line",
			Message: err.Error(),
		})
	}
	if err != nil {
		return err
	}

	h.moveTo(entities.WorkflowOrdering, entities.WorkflowWelcome)
	return c.JSON(http.StatusCreated, h.orderResponse())
}

func (h *handler) updateQuantity(c echo.Context) error {
	var req UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if !h.deps.Order.UpdateQuantity(c.Param("id"), req.Quantity) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Order line not found",
		})
	}
	return c.JSON(http.StatusOK, h.orderResponse())
}

// removeItem is idempotent; removing an absent line still succeeds
func (h *handler) removeItem(c echo.Context) error {
	h.deps.Order.RemoveItem(c.Param("id"))
	return c.JSON(http.StatusOK, h.orderResponse())
}

func (h *handler) clearOrder(c echo.Context) error {
	h.deps.Order.Clear()
	h.deps.Workflow.Reset()
	return c.JSON(http.StatusOK, h.orderResponse())
}

func (h *handler) checkout(c echo.Context) error {
	summary, err := h.deps.Order.Checkout()
	if errors.Is(err, domain.ErrEmptyOrder) {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "empty_order",
			Message: err.Error(),
		})
	}
	if err != nil {
		return err
	}

	h.deps.Workflow.SetState(entities.WorkflowConfirmed)
	return c.JSON(http.StatusOK, CheckoutResponse{
		ID:           summary.ID,
		Items:        summary.Items,
		Total:        summary.Total,
		TotalDisplay: entities.FormatPrice(summary.Total),
		CreatedAt:    summary.CreatedAt,
	})
}

func (h *handler) getVoice(c echo.Context) error {
	return c.JSON(http.StatusOK, VoiceResponse{
		ClientID:   h.deps.ClientID,
		VoiceState: h.deps.Voice.State(),
	})
}

func (h *handler) toggleVoice(c echo.Context) error {
	if err := h.deps.Voice.Toggle(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNotConnected) || errors.Is(err, domain.ErrNotInitialized) {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, ErrorResponse{
			Error:   "voice_unavailable",
			Message: err.Error(),
		})
	}
	return h.getVoice(c)
}

func (h *handler) getWorkflow(c echo.Context) error {
	return c.JSON(http.StatusOK, WorkflowResponse{
		State:    h.deps.Workflow.State(),
		Language: h.deps.Workflow.Language(),
	})
}

func (h *handler) updateWorkflow(c echo.Context) error {
	var req WorkflowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.State != "" {
		if err := h.deps.Workflow.SetState(req.State); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_state", Message: err.Error()})
		}
	}
	if req.Language != "" {
		if err := h.deps.Workflow.SetLanguage(req.Language); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_language", Message: err.Error()})
		}
	}
	return h.getWorkflow(c)
}

func (h *handler) orderResponse() OrderResponse {
	total := h.deps.Order.Total()
	return OrderResponse{
		Items:        h.deps.Order.Items(),
		Total:        total,
		TotalDisplay: entities.FormatPrice(total),
	}
}

// moveTo advances the workflow to next when it is currently at from
func (h *handler) moveTo(next, from entities.WorkflowState) {
	if h.deps.Workflow.State() == from {
		h.deps.Workflow.SetState(next)
	}
}
