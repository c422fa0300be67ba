package printing

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Config is a tenant's printer set, indexed by id
type Config map[uuid.UUID]*Printer

// NewConfig indexes printers by id
func NewConfig(printers []*Printer) Config {
	cfg := make(Config, len(printers))
	for _, p := range printers {
		cfg[p.ID] = p
	}
	return cfg
}

// Assign picks the printer for a station: the first printer serving it,
// otherwise the default printer. Nil when neither exists.
func (c Config) Assign(station string) *Printer {
	var fallback *Printer
	for _, p := range c.sorted() {
		if station != "" && p.ServesStation(station) {
			return p
		}
		if p.IsDefault && fallback == nil {
			fallback = p
		}
	}
	return fallback
}

// ValidateRedirect checks that pointing source at target keeps the redirect
// graph acyclic. It walks the chain starting at target; reaching source means
// the new edge would close a loop.
func (c Config) ValidateRedirect(source, target uuid.UUID) error {
	if source == target {
		return ErrRedirectCycle
	}
	seen := map[uuid.UUID]bool{}
	current := target
	for {
		p, ok := c[current]
		if !ok {
			return ErrRedirectTarget
		}
		if p.State != PrinterStateRedirect || p.RedirectTo == nil {
			return nil
		}
		next := *p.RedirectTo
		if next == source || seen[next] {
			return ErrRedirectCycle
		}
		seen[current] = true
		current = next
	}
}

// Resolution is where a job for an assigned printer ends up
type Resolution struct {
	Printer *Printer
	Status  JobStatus
	Dropped bool
}

// Resolve follows redirects from assigned and maps the final printer's state
// to a job status. A cycle in stored configuration resolves to ErrRedirectCycle.
func (c Config) Resolve(assigned *Printer) (Resolution, error) {
	seen := map[uuid.UUID]bool{}
	current := assigned
	for {
		if seen[current.ID] {
			return Resolution{}, ErrRedirectCycle
		}
		seen[current.ID] = true

		switch current.State {
		case PrinterStateNormal:
			return Resolution{Printer: current, Status: JobStatusQueued}, nil
		case PrinterStateWait:
			return Resolution{Printer: current, Status: JobStatusWaiting}, nil
		case PrinterStateIgnore:
			return Resolution{Printer: current, Dropped: true}, nil
		case PrinterStateRedirect:
			if current.RedirectTo == nil {
				return Resolution{}, ErrRedirectTarget
			}
			next, ok := c[*current.RedirectTo]
			if !ok {
				return Resolution{}, ErrRedirectTarget
			}
			current = next
		default:
			return Resolution{}, ErrRedirectTarget
		}
	}
}

// sorted returns printers in creation order so station lookups are stable
func (c Config) sorted() []*Printer {
	out := make([]*Printer, 0, len(c))
	for _, p := range c {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Printer) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}
