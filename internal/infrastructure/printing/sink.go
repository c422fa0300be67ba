package printing

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"go.uber.org/zap"
)

// SocketSink sends rendered tickets to the printer address over raw TCP
type SocketSink struct {
	renderer    *TicketRenderer
	dialer      net.Dialer
	dialTimeout time.Duration
	logger      *zap.Logger
}

func NewSocketSink(renderer *TicketRenderer, dialTimeout time.Duration, logger *zap.Logger) *SocketSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}
	return &SocketSink{renderer: renderer, dialTimeout: dialTimeout, logger: logger}
}

// Send dials the printer, writes the ticket and closes the connection. The
// write deadline follows ctx when it has one.
func (s *SocketSink) Send(ctx context.Context, job *printing.Job) error {
	data, err := s.renderer.Render(job)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()
	conn, err := s.dialer.DialContext(dialCtx, "tcp", job.Ticket.PrinterAddress)
	if err != nil {
		return fmt.Errorf("dial printer %s: %w", job.Ticket.PrinterAddress, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.dialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write to printer %s: %w", job.Ticket.PrinterAddress, err)
	}

	s.logger.Debug("ticket sent",
		zap.String("job_id", job.ID.String()),
		zap.String("printer", job.Ticket.PrinterAddress),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// LogSink logs rendered tickets instead of printing them
type LogSink struct {
	renderer *TicketRenderer
	logger   *zap.Logger
}

func NewLogSink(renderer *TicketRenderer, logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{renderer: renderer, logger: logger}
}

func (s *LogSink) Send(_ context.Context, job *printing.Job) error {
	data, err := s.renderer.Render(job)
	if err != nil {
		return err
	}
	s.logger.Info("kitchen ticket",
		zap.String("job_id", job.ID.String()),
		zap.String("printer_id", job.PrinterID.String()),
		zap.String("ticket", string(data)),
	)
	return nil
}

var (
	_ printing.Sink = (*SocketSink)(nil)
	_ printing.Sink = (*LogSink)(nil)
)
