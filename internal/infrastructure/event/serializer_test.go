package event

import (
	"testing"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_OrderConfirmedRoundTrip(t *testing.T) {
	s := testSerializer()
	tenantID := uuid.New()

	o, err := order.NewOrder(tenantID, uuid.New(), nil)
	require.NoError(t, err)
	_, err = o.AddLine(uuid.New(), "Ribeye", "grill", 2, valueobject.MustMoney("24.50"), "medium rare")
	require.NoError(t, err)
	_, err = o.Confirm()
	require.NoError(t, err)

	events := o.GetDomainEvents()
	require.Len(t, events, 1)
	data, err := s.Serialize(events[0])
	require.NoError(t, err)

	decoded, err := s.Deserialize(order.EventTypeOrderConfirmed, data)
	require.NoError(t, err)
	confirmed, ok := decoded.(*order.OrderConfirmedEvent)
	require.True(t, ok)
	assert.Equal(t, tenantID, confirmed.TenantID())
	assert.Equal(t, o.ID, confirmed.OrderID)
	require.Len(t, confirmed.Lines, 1)
	assert.Equal(t, "grill", confirmed.Lines[0].Station)
	assert.True(t, confirmed.Lines[0].UnitPrice.Equal(valueobject.MustMoney("24.50")))
	assert.Equal(t, []string{"medium rare"}, confirmed.Lines[0].Notes)
}

func TestEventSerializer_UnknownType(t *testing.T) {
	_, err := NewEventSerializer().Deserialize("Nope", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")
}

func TestRegisterAllEvents(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	for _, eventType := range []string{
		order.EventTypeOrderConfirmed,
		order.EventTypeOrderClosed,
		order.EventTypeOrderVoided,
		order.EventTypeOrderLineVoided,
		payment.EventTypePaymentCompleted,
		payment.EventTypePaymentVoided,
		"CashSessionClosed",
	} {
		assert.True(t, s.IsRegistered(eventType), eventType)
	}
	assert.Len(t, s.RegisteredTypes(), 7)
}

type renamedEvent struct {
	shared.BaseDomainEvent
	Station string `json:"station"`
	Copies  int    `json:"copies"`
}

func TestEventSerializer_UpgradesOldPayloads(t *testing.T) {
	s := NewEventSerializer()
	s.Register("TicketPrinted", &renamedEvent{})
	s.RegisterUpgrade("TicketPrinted", 1, RenameField("category", "station"))
	s.RegisterUpgrade("TicketPrinted", 2, AddField("copies", 1))

	v1 := []byte(`{"id":"` + uuid.NewString() + `","type":"TicketPrinted","category":"bar"}`)
	assert.Equal(t, 1, PayloadVersion(v1))

	decoded, err := s.Deserialize("TicketPrinted", v1)
	require.NoError(t, err)
	ev := decoded.(*renamedEvent)
	assert.Equal(t, "bar", ev.Station)
	assert.Equal(t, 1, ev.Copies)
	assert.Equal(t, 3, ev.SchemaVersion())

	current := []byte(`{"type":"TicketPrinted","schema_version":3,"station":"grill","copies":2}`)
	decoded, err = s.Deserialize("TicketPrinted", current)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.(*renamedEvent).Copies, "current payloads are untouched")
}
