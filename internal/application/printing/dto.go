package printing

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/google/uuid"
)

// CreatePrinterRequest configures a new printer. Stations are the kitchen
// categories whose lines route to it.
type CreatePrinterRequest struct {
	Name      string   `json:"name" binding:"required,min=1,max=100"`
	Address   string   `json:"address" binding:"required,max=255"`
	Stations  []string `json:"stations" binding:"max=50,dive,max=50"`
	IsDefault bool     `json:"is_default"`
}

// UpdatePrinterRequest replaces the station list and optionally the default flag
type UpdatePrinterRequest struct {
	ExpectedVersion int      `json:"expected_version" binding:"required,min=1"`
	Address         *string  `json:"address" binding:"omitempty,min=1,max=255"`
	Stations        []string `json:"stations" binding:"max=50,dive,max=50"`
	IsDefault       *bool    `json:"is_default"`
}

type SetPrinterStateRequest struct {
	ExpectedVersion int        `json:"expected_version" binding:"required,min=1"`
	State           string     `json:"state" binding:"required,oneof=NORMAL WAIT IGNORE REDIRECT"`
	RedirectTo      *uuid.UUID `json:"redirect_to"`
}

// PrinterResponse is the API view of a printer
type PrinterResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Stations   []string   `json:"stations"`
	IsDefault  bool       `json:"is_default"`
	State      string     `json:"state"`
	RedirectTo *uuid.UUID `json:"redirect_to,omitempty"`
	Version    int        `json:"version"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type PrintJobResponse struct {
	ID                uuid.UUID  `json:"id"`
	OrderID           uuid.UUID  `json:"order_id"`
	LineID            uuid.UUID  `json:"line_id"`
	AssignedPrinterID uuid.UUID  `json:"assigned_printer_id"`
	PrinterID         uuid.UUID  `json:"printer_id"`
	Status            string     `json:"status"`
	Item              string     `json:"item"`
	Quantity          int        `json:"quantity"`
	Attempts          int        `json:"attempts"`
	LastError         string     `json:"last_error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
}

// DispatchResult counts what one dispatch pass did
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

func ToPrinterResponse(p *printing.Printer) *PrinterResponse {
	stations := p.Stations
	if stations == nil {
		stations = []string{}
	}
	return &PrinterResponse{
		ID:         p.ID,
		Name:       p.Name,
		Address:    p.Address,
		Stations:   stations,
		IsDefault:  p.IsDefault,
		State:      p.State.String(),
		RedirectTo: p.RedirectTo,
		Version:    p.Version,
		UpdatedAt:  p.UpdatedAt,
	}
}

func ToPrintJobResponse(j *printing.Job) PrintJobResponse {
	return PrintJobResponse{
		ID:                j.ID,
		OrderID:           j.OrderID,
		LineID:            j.LineID,
		AssignedPrinterID: j.AssignedPrinterID,
		PrinterID:         j.PrinterID,
		Status:            j.Status.String(),
		Item:              j.Ticket.Item,
		Quantity:          j.Ticket.Quantity,
		Attempts:          j.Attempts,
		LastError:         j.LastError,
		CreatedAt:         j.CreatedAt,
		SentAt:            j.SentAt,
	}
}
