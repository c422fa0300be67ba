package printing

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// JobStatus is the dispatch state of a print job
type JobStatus string

const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusWaiting JobStatus = "WAITING"
	JobStatusSent    JobStatus = "SENT"
	JobStatusFailed  JobStatus = "FAILED"
)

func (s JobStatus) String() string { return string(s) }

// DedupeKey identifies one line on one assigned printer. It is derived from
// the printer the line was assigned to, before any redirect, so a redelivered
// event maps to the same key even if the redirect changed in between.
func DedupeKey(orderID, lineID, printerID uuid.UUID) string {
	sum := sha256.Sum256([]byte(orderID.String() + "|" + lineID.String() + "|" + printerID.String()))
	return hex.EncodeToString(sum[:])
}

// Ticket is the content handed to the printing hardware collaborator
type Ticket struct {
	PrinterAddress string    `json:"printer_address"`
	TableRef       string    `json:"table_ref,omitempty"`
	Item           string    `json:"item"`
	Quantity       int       `json:"quantity"`
	Modifiers      []string  `json:"modifiers,omitempty"`
	OrderedAt      time.Time `json:"ordered_at"`
}

// Job is one line ticket for one printer
type Job struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	OrderID           uuid.UUID
	LineID            uuid.UUID
	AssignedPrinterID uuid.UUID
	PrinterID         uuid.UUID
	DedupeKey         string
	Status            JobStatus
	Ticket            Ticket
	Attempts          int
	LastError         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	SentAt            *time.Time
}

// NewJob creates a job for a resolved printer
func NewJob(tenantID, orderID, lineID uuid.UUID, assigned *Printer, res Resolution, ticket Ticket) *Job {
	now := time.Now()
	ticket.PrinterAddress = res.Printer.Address
	return &Job{
		ID:                uuid.New(),
		TenantID:          tenantID,
		OrderID:           orderID,
		LineID:            lineID,
		AssignedPrinterID: assigned.ID,
		PrinterID:         res.Printer.ID,
		DedupeKey:         DedupeKey(orderID, lineID, assigned.ID),
		Status:            res.Status,
		Ticket:            ticket,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

var errJobTransition = shared.NewDomainError(shared.ErrInvalidState.Code, "Print job cannot move to the requested status")

// Release moves a WAITING job to QUEUED
func (j *Job) Release() error {
	if j.Status != JobStatusWaiting {
		return errJobTransition
	}
	j.Status = JobStatusQueued
	j.UpdatedAt = time.Now()
	return nil
}

// MarkSent records a successful hand-off to the printer
func (j *Job) MarkSent() error {
	if j.Status != JobStatusQueued && j.Status != JobStatusFailed {
		return errJobTransition
	}
	now := time.Now()
	j.Status = JobStatusSent
	j.Attempts++
	j.SentAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkFailed records a failed hand-off; the job stays eligible for dispatch
func (j *Job) MarkFailed(reason string) {
	j.Status = JobStatusFailed
	j.Attempts++
	j.LastError = reason
	j.UpdatedAt = time.Now()
}
