package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
)

// AddItemRequest is a structured cart mutation produced by the ordering layer.
// ID may be omitted, in which case the line identity is derived from ItemID
// and the chosen variants and add-ons.
type AddItemRequest struct {
	ID        string             `json:"id"`
	ItemID    string             `json:"item_id"`
	NameAr    string             `json:"name_ar"`
	NameEn    string             `json:"name_en"`
	BasePrice decimal.Decimal    `json:"base_price"`
	Quantity  int                `json:"quantity"`
	Variants  []entities.Variant `json:"variants"`
	AddOns    []entities.AddOn   `json:"addons"`
}

// UpdateQuantityRequest sets a line quantity; zero or less removes the line
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// OrderResponse is the current cart
type OrderResponse struct {
	Items        []entities.OrderLine `json:"items"`
	Total        decimal.Decimal      `json:"total"`
	TotalDisplay string               `json:"total_display"`
}

// CheckoutResponse is a checked-out order
type CheckoutResponse struct {
	ID           string               `json:"id"`
	Items        []entities.OrderLine `json:"items"`
	Total        decimal.Decimal      `json:"total"`
	TotalDisplay string               `json:"total_display"`
	CreatedAt    time.Time            `json:"created_at"`
}

// VoiceResponse is the voice session snapshot
type VoiceResponse struct {
	ClientID string `json:"client_id"`
	entities.VoiceState
}

// WorkflowRequest updates the kiosk screen and/or language
type WorkflowRequest struct {
	State    entities.WorkflowState `json:"state,omitempty"`
	Language entities.Language      `json:"language,omitempty"`
}

// WorkflowResponse is the kiosk screen and language
type WorkflowResponse struct {
	State    entities.WorkflowState `json:"state"`
	Language entities.Language      `json:"language"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
