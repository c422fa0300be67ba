package event

import (
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/cashregister"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
)

// RegisterAllEvents registers every event the relay has to decode from the outbox
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(order.EventTypeOrderConfirmed, &order.OrderConfirmedEvent{})
	serializer.Register(order.EventTypeOrderClosed, &order.OrderClosedEvent{})
	serializer.Register(order.EventTypeOrderVoided, &order.OrderVoidedEvent{})
	serializer.Register(order.EventTypeOrderLineVoided, &order.OrderLineVoidedEvent{})

	serializer.Register(payment.EventTypePaymentCompleted, &payment.PaymentCompletedEvent{})
	serializer.Register(payment.EventTypePaymentVoided, &payment.PaymentVoidedEvent{})

	serializer.Register(cashregister.EventTypeCashSessionClosed, &cashregister.CashSessionClosedEvent{})
}
