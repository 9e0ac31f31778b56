package domain

import "time"

// OrderStatus описывает жизненный цикл ордера.
type OrderStatus string

const (
	// OrderStatusPending — ордер создан, оплата не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — мейкер подтвердил получение оплаты.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCanceled — ордер отменён.
	OrderStatusCanceled OrderStatus = "canceled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCanceled:
		return true
	default:
		return false
	}
}

// Order — заявка тейкера на исполнение оффера. Живёт только внутри
// своего оффера и сохраняется вместе с ним.
type Order struct {
	ID string `json:"id"`

	// CounterpartyAddress всегда берётся из проверенной подписи тейкера,
	// значение из тела запроса не используется.
	CounterpartyAddress string `json:"counterpartyAddress"`

	UnitPrice     float64 `json:"unitPrice"`
	FiatPrice     float64 `json:"fiatPrice"`
	FiatCurrency  string  `json:"fiatCurrency"`
	PaymentMethod string  `json:"paymentMethod"`
	Currency      string  `json:"currency"`

	// PaymentProof — ссылка на загруженное подтверждение оплаты, пустая до загрузки.
	PaymentProof string `json:"paymentProof,omitempty"`

	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ValidateInvariants проверяет схему ордера относительно владеющего оффера.
func (ord *Order) ValidateInvariants(offer *Offer) []FieldError {
	var errs []FieldError

	if ord.CounterpartyAddress == "" {
		errs = append(errs, FieldError{Field: "counterpartyAddress", Message: "counterparty address is required"})
	}
	if ord.UnitPrice <= 0 {
		errs = append(errs, FieldError{Field: "unitPrice", Message: "must be a positive number"})
	}
	if ord.FiatPrice <= 0 {
		errs = append(errs, FieldError{Field: "fiatPrice", Message: "must be a positive number"})
	}
	if ord.FiatCurrency == "" {
		errs = append(errs, FieldError{Field: "fiatCurrency", Message: "fiat currency is required"})
	}
	if ord.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "currency is required"})
	}
	switch {
	case ord.PaymentMethod == "":
		errs = append(errs, FieldError{Field: "paymentMethod", Message: "payment method is required"})
	case offer != nil && !offer.AdvertisesPaymentMethod(ord.PaymentMethod):
		errs = append(errs, FieldError{Field: "paymentMethod", Message: "payment method is not advertised by the offer"})
	}
	if !ord.Status.Valid() {
		errs = append(errs, FieldError{Field: "status", Message: "must be one of pending, paid, canceled"})
	}

	return errs
}
