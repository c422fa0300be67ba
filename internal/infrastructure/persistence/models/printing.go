package models

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/google/uuid"
)

// PrinterModel is the GORM model for the printers table
type PrinterModel struct {
	TenantAggregateModel
	Name       string                `gorm:"type:varchar(100);not null"`
	Address    string                `gorm:"type:varchar(255);not null"`
	Stations   []string              `gorm:"type:jsonb;serializer:json"`
	IsDefault  bool                  `gorm:"not null"`
	State      printing.PrinterState `gorm:"type:varchar(20);not null"`
	RedirectTo *uuid.UUID            `gorm:"type:uuid"`
}

func (PrinterModel) TableName() string {
	return "printers"
}

func (m *PrinterModel) ToDomain() *printing.Printer {
	return &printing.Printer{
		TenantAggregateRoot: m.ToDomainRoot(),
		Name:                m.Name,
		Address:             m.Address,
		Stations:            m.Stations,
		IsDefault:           m.IsDefault,
		State:               m.State,
		RedirectTo:          m.RedirectTo,
	}
}

func PrinterModelFromDomain(p *printing.Printer) *PrinterModel {
	m := &PrinterModel{
		Name:       p.Name,
		Address:    p.Address,
		Stations:   p.Stations,
		IsDefault:  p.IsDefault,
		State:      p.State,
		RedirectTo: p.RedirectTo,
	}
	m.TenantAggregateModel.FromDomain(p.TenantAggregateRoot)
	return m
}

// PrintJobModel is the GORM model for the print_jobs table. (tenant_id,
// dedupe_key) is unique: redelivered confirmations cannot duplicate a ticket.
type PrintJobModel struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:uq_print_jobs_tenant_dedupe,priority:1"`
	DedupeKey         string             `gorm:"type:varchar(64);not null;uniqueIndex:uq_print_jobs_tenant_dedupe,priority:2"`
	OrderID           uuid.UUID          `gorm:"type:uuid;not null;index"`
	LineID            uuid.UUID          `gorm:"type:uuid;not null"`
	AssignedPrinterID uuid.UUID          `gorm:"type:uuid;not null"`
	PrinterID         uuid.UUID          `gorm:"type:uuid;not null;index:idx_print_jobs_printer_status,priority:1"`
	Status            printing.JobStatus `gorm:"type:varchar(20);not null;index:idx_print_jobs_printer_status,priority:2"`
	Ticket            printing.Ticket    `gorm:"type:jsonb;serializer:json;not null"`
	Attempts          int                `gorm:"not null"`
	LastError         string             `gorm:"type:text"`
	CreatedAt         time.Time          `gorm:"not null"`
	UpdatedAt         time.Time          `gorm:"not null"`
	SentAt            *time.Time
}

func (PrintJobModel) TableName() string {
	return "print_jobs"
}

func (PrintJobModel) TenantOwned() {}

func (m *PrintJobModel) ToDomain() *printing.Job {
	return &printing.Job{
		ID:                m.ID,
		TenantID:          m.TenantID,
		OrderID:           m.OrderID,
		LineID:            m.LineID,
		AssignedPrinterID: m.AssignedPrinterID,
		PrinterID:         m.PrinterID,
		DedupeKey:         m.DedupeKey,
		Status:            m.Status,
		Ticket:            m.Ticket,
		Attempts:          m.Attempts,
		LastError:         m.LastError,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		SentAt:            m.SentAt,
	}
}

func PrintJobModelFromDomain(j *printing.Job) *PrintJobModel {
	return &PrintJobModel{
		ID:                j.ID,
		TenantID:          j.TenantID,
		DedupeKey:         j.DedupeKey,
		OrderID:           j.OrderID,
		LineID:            j.LineID,
		AssignedPrinterID: j.AssignedPrinterID,
		PrinterID:         j.PrinterID,
		Status:            j.Status,
		Ticket:            j.Ticket,
		Attempts:          j.Attempts,
		LastError:         j.LastError,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
		SentAt:            j.SentAt,
	}
}
