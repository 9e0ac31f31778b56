package kafka

import (
	"strconv"
	"time"
)

// EventType определяет тип события.
type EventType string

const (
	// Offer события
	EventTypeOfferCreated EventType = "offer.created"
	EventTypeOfferUpdated EventType = "offer.updated"

	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
)

// Topics для Kafka.
const (
	TopicOfferEvents = "p2p.offer.events"
	TopicOrderEvents = "p2p.order.events"
)

// OfferEvent представляет событие оффера.
type OfferEvent struct {
	EventType EventType `json:"event_type"`
	OfferID   int64     `json:"offer_id"`
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderEvent представляет событие ордера.
type OrderEvent struct {
	EventType           EventType `json:"event_type"`
	OfferID             int64     `json:"offer_id"`
	OrderID             string    `json:"order_id"`
	CounterpartyAddress string    `json:"counterparty_address,omitempty"`
	Status              string    `json:"status"`
	Timestamp           time.Time `json:"timestamp"`
}

// NewOfferEvent создает событие оффера с текущим временем.
func NewOfferEvent(eventType EventType, offerID int64, address string) OfferEvent {
	return OfferEvent{
		EventType: eventType,
		OfferID:   offerID,
		Address:   address,
		Timestamp: time.Now().UTC(),
	}
}

// NewOrderEvent создает событие ордера с текущим временем.
func NewOrderEvent(eventType EventType, offerID int64, orderID, taker, status string) OrderEvent {
	return OrderEvent{
		EventType:           eventType,
		OfferID:             offerID,
		OrderID:             orderID,
		CounterpartyAddress: taker,
		Status:              status,
		Timestamp:           time.Now().UTC(),
	}
}

// OfferKey возвращает ключ партиционирования для событий оффера.
// События одного оффера попадают в одну партицию и сохраняют порядок.
func OfferKey(offerID int64) string {
	return strconv.FormatInt(offerID, 10)
}
