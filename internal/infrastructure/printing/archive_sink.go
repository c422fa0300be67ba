package printing

import (
	"context"
	"fmt"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"go.uber.org/zap"
)

// Archiver stores rendered tickets. storage.S3ObjectStorage satisfies it.
type Archiver interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
}

// ArchiveSink sends through next and then keeps a copy of the rendered
// ticket. An archive failure is logged and never fails the job, since the
// kitchen already has the ticket.
type ArchiveSink struct {
	next     printing.Sink
	archive  Archiver
	renderer *TicketRenderer
	logger   *zap.Logger
}

func NewArchiveSink(next printing.Sink, archive Archiver, renderer *TicketRenderer, logger *zap.Logger) *ArchiveSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveSink{next: next, archive: archive, renderer: renderer, logger: logger}
}

func (s *ArchiveSink) Send(ctx context.Context, job *printing.Job) error {
	if err := s.next.Send(ctx, job); err != nil {
		return err
	}

	data, err := s.renderer.Render(job)
	if err == nil {
		err = s.archive.Upload(ctx, ArchiveKey(job), data, "text/plain; charset=utf-8")
	}
	if err != nil {
		s.logger.Warn("ticket archive failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// ArchiveKey is tickets/<tenant>/<yyyy>/<mm>/<dd>/<job>.txt, dated by job
// creation in UTC
func ArchiveKey(job *printing.Job) string {
	created := job.CreatedAt.UTC()
	return fmt.Sprintf("tickets/%s/%04d/%02d/%02d/%s.txt",
		job.TenantID, created.Year(), created.Month(), created.Day(), job.ID)
}

var _ printing.Sink = (*ArchiveSink)(nil)
