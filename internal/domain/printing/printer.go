// Package printing routes confirmed order lines to kitchen printers.
//
// Every line is assigned a printer by station, falling back to the tenant's
// default printer. The assigned printer's state then decides what happens to
// the job:
//
//	NORMAL    job is QUEUED for dispatch
//	WAIT      job is WAITING until the printer is released
//	IGNORE    job is dropped
//	REDIRECT  the job follows RedirectTo, whose state applies in turn
//
// Redirect chains are validated when configuration is saved, so a stored
// configuration never contains a cycle.
package printing

import (
	"strings"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// PrinterState controls what happens to jobs routed to a printer
type PrinterState string

const (
	PrinterStateNormal   PrinterState = "NORMAL"
	PrinterStateWait     PrinterState = "WAIT"
	PrinterStateIgnore   PrinterState = "IGNORE"
	PrinterStateRedirect PrinterState = "REDIRECT"
)

func (s PrinterState) IsValid() bool {
	switch s {
	case PrinterStateNormal, PrinterStateWait, PrinterStateIgnore, PrinterStateRedirect:
		return true
	}
	return false
}

func (s PrinterState) String() string { return string(s) }

var (
	ErrRedirectCycle  = shared.NewDomainError(shared.ErrInvalidInput.Code, "Printer redirect would form a cycle")
	ErrRedirectTarget = shared.NewDomainError(shared.ErrInvalidInput.Code, "Redirect target printer does not exist")
)

// Printer is a kitchen or bar printer configured for a tenant
type Printer struct {
	shared.TenantAggregateRoot
	Name       string
	Address    string
	Stations   []string
	IsDefault  bool
	State      PrinterState
	RedirectTo *uuid.UUID
}

// NewPrinter creates a NORMAL printer
func NewPrinter(tenantID uuid.UUID, name, address string, stations []string, isDefault bool) (*Printer, error) {
	if name == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Printer name cannot be empty")
	}
	if address == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Printer address cannot be empty")
	}
	return &Printer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Address:             address,
		Stations:            normalizeStations(stations),
		IsDefault:           isDefault,
		State:               PrinterStateNormal,
	}, nil
}

// ServesStation reports whether lines for station route here
func (p *Printer) ServesStation(station string) bool {
	station = strings.ToLower(strings.TrimSpace(station))
	for _, s := range p.Stations {
		if s == station {
			return true
		}
	}
	return false
}

// SetState changes the printer state. redirectTo is required for REDIRECT and
// ignored otherwise. Cycle checks need the whole configuration and are done
// by ValidateRedirect before the change is saved.
func (p *Printer) SetState(state PrinterState, redirectTo *uuid.UUID) error {
	if !state.IsValid() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown printer state: "+state.String())
	}
	if state == PrinterStateRedirect {
		if redirectTo == nil || *redirectTo == uuid.Nil {
			return shared.NewDomainError(shared.ErrInvalidInput.Code, "Redirect target is required")
		}
		if *redirectTo == p.ID {
			return ErrRedirectCycle
		}
		target := *redirectTo
		p.RedirectTo = &target
	} else {
		p.RedirectTo = nil
	}
	p.State = state
	p.Touch()
	return nil
}

func normalizeStations(stations []string) []string {
	out := make([]string, 0, len(stations))
	seen := make(map[string]bool, len(stations))
	for _, s := range stations {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// SetStations replaces the stations served by the printer
func (p *Printer) SetStations(stations []string) {
	p.Stations = normalizeStations(stations)
	p.Touch()
}
