package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const (
	watermillTopic       = "restaurant.domain_events"
	metadataEventType    = "event_type"
	metadataTenantID     = "tenant_id"
	metadataAggregateID  = "aggregate_id"
	watermillOutputQueue = 64
)

// WatermillEventBus routes events through a Watermill Go channel pub/sub.
// Publish blocks until the subscriber acknowledged the message and returns
// the handlers' joined error, so the relay keeps its at-least-once contract
// with either transport.
type WatermillEventBus struct {
	pubsub     *gochannel.GoChannel
	serializer *EventSerializer
	registry   *HandlerRegistry
	logger     *zap.Logger

	results sync.Map // message uuid -> error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatermillEventBus creates the bus. serializer must know every event type
// that is published.
func NewWatermillEventBus(serializer *EventSerializer, logger *zap.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            watermillOutputQueue,
			BlockPublishUntilSubscriberAck: true,
		}, &zapAdapter{log: logger}),
		serializer: serializer,
		registry:   NewHandlerRegistry(),
		logger:     logger,
	}
}

func (b *WatermillEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
}

func (b *WatermillEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start subscribes the dispatcher to the topic
func (b *WatermillEventBus) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	messages, err := b.pubsub.Subscribe(ctx, watermillTopic)
	if err != nil {
		cancel()
		return fmt.Errorf("events: subscribe to %s: %w", watermillTopic, err)
	}
	b.cancel = cancel

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			b.consume(ctx, msg)
		}
	}()

	b.logger.Info("event bus started", zap.String("transport", "watermill"))
	return nil
}

// Stop closes the pub/sub and waits for the dispatcher to drain
func (b *WatermillEventBus) Stop(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	if err := b.pubsub.Close(); err != nil {
		return fmt.Errorf("events: close pubsub: %w", err)
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped", zap.String("transport", "watermill"))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish sends each event as its own message. Trace context is carried in
// the message metadata.
func (b *WatermillEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	var errs []error
	for _, event := range events {
		payload, err := b.serializer.Serialize(event)
		if err != nil {
			errs = append(errs, fmt.Errorf("serialize %s: %w", event.EventType(), err))
			continue
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		for k, v := range carrier {
			msg.Metadata.Set(k, v)
		}
		msg.Metadata.Set(metadataEventType, event.EventType())
		msg.Metadata.Set(metadataTenantID, event.TenantID().String())
		msg.Metadata.Set(metadataAggregateID, event.AggregateID().String())

		if err := b.pubsub.Publish(watermillTopic, msg); err != nil {
			errs = append(errs, fmt.Errorf("events: publish %s: %w", event.EventType(), err))
			continue
		}
		if result, ok := b.results.LoadAndDelete(msg.UUID); ok && result != nil {
			errs = append(errs, result.(error))
		}
	}
	return errors.Join(errs...)
}

// consume decodes a message, runs its handlers and records the outcome
// before acknowledging, which releases the blocked publisher.
func (b *WatermillEventBus) consume(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	carrier := propagation.MapCarrier{}
	for k, v := range msg.Metadata {
		carrier[k] = v
	}
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)

	eventType := msg.Metadata.Get(metadataEventType)
	event, err := b.serializer.Deserialize(eventType, msg.Payload)
	if err != nil {
		b.results.Store(msg.UUID, err)
		return
	}

	var errs []error
	for _, handler := range b.registry.GetHandlers(eventType) {
		if err := dispatch(msgCtx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", eventType),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		b.results.Store(msg.UUID, err)
	}
}

var _ shared.EventBus = (*WatermillEventBus)(nil)

// zapAdapter bridges zap to watermill.LoggerAdapter
type zapAdapter struct{ log *zap.Logger }

func (a *zapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a *zapAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, zapFields(fields)...)
}

func (a *zapAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, zapFields(fields)...)
}

func (a *zapAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, zapFields(fields)...)
}

func (a *zapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapAdapter{log: a.log.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
