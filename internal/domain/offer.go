package domain

import (
	"strconv"
	"time"
)

// OfferDetail описывает один блок условий оффера: принимаемые валюты,
// способ оплаты и инструкции для тейкера.
type OfferDetail struct {
	Currency      []string `json:"currency"`
	PaymentMethod string   `json:"paymentMethod"`
	Language      string   `json:"language"`
	Instructions  string   `json:"instructions"`
}

// Offer агрегирует объявление мейкера и вложенный список ордеров.
// На один адрес существует не более одного оффера.
type Offer struct {
	ID      int64  `json:"id"`
	Address string `json:"address"`

	// UserName и Avatar заполняются из профиля Bastyon, клиентом не редактируются.
	UserName string `json:"userName"`
	Avatar   string `json:"avatar"`

	Details []OfferDetail `json:"details"`

	MinPkoin float64 `json:"minPkoin"`
	MaxPkoin float64 `json:"maxPkoin"`
	Margin   float64 `json:"margin"`

	Telegram     string `json:"telegram"`
	TransferTime string `json:"transferTime"`

	// CompletedOrders — производный агрегат: число ордеров в статусе paid.
	// Пересчитывается целиком при каждой смене статуса, не патчится инкрементально.
	CompletedOrders int `json:"completedOrders"`

	// Orders хранится и сохраняется вместе с оффером как единое целое.
	// Последовательность append-only, мутация возможна только у статуса ордера.
	Orders []Order `json:"orders"`

	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// ValidateInvariants проверяет схему оффера и возвращает список нарушений по полям.
func (o *Offer) ValidateInvariants() []FieldError {
	var errs []FieldError

	if len(o.Details) == 0 {
		errs = append(errs, FieldError{Field: "details", Message: "at least one detail entry is required"})
	}
	for i, d := range o.Details {
		if len(d.Currency) == 0 {
			errs = append(errs, FieldError{Field: detailField(i, "currency"), Message: "at least one currency is required"})
		}
		for _, c := range d.Currency {
			if c == "" {
				errs = append(errs, FieldError{Field: detailField(i, "currency"), Message: "currency code must not be empty"})
				break
			}
		}
		if d.PaymentMethod == "" {
			errs = append(errs, FieldError{Field: detailField(i, "paymentMethod"), Message: "payment method is required"})
		}
	}

	if o.MinPkoin <= 0 {
		errs = append(errs, FieldError{Field: "minPkoin", Message: "must be a positive number"})
	}
	if o.MaxPkoin <= 0 {
		errs = append(errs, FieldError{Field: "maxPkoin", Message: "must be a positive number"})
	}
	// Границы должны быть согласованы между собой.
	if o.MinPkoin > 0 && o.MaxPkoin > 0 && o.MinPkoin > o.MaxPkoin {
		errs = append(errs, FieldError{Field: "minPkoin", Message: "must not exceed maxPkoin"})
	}
	if o.Margin <= 0 {
		errs = append(errs, FieldError{Field: "margin", Message: "must be a positive number"})
	}
	if o.Telegram == "" {
		errs = append(errs, FieldError{Field: "telegram", Message: "contact is required"})
	}
	if o.TransferTime == "" {
		errs = append(errs, FieldError{Field: "transferTime", Message: "transfer time is required"})
	}

	return errs
}

// AcceptsCurrency сообщает, принимает ли хотя бы один блок условий данную валюту.
func (o *Offer) AcceptsCurrency(currency string) bool {
	for _, d := range o.Details {
		for _, c := range d.Currency {
			if c == currency {
				return true
			}
		}
	}
	return false
}

// AdvertisesPaymentMethod сообщает, объявлен ли способ оплаты в условиях оффера.
func (o *Offer) AdvertisesPaymentMethod(method string) bool {
	for _, d := range o.Details {
		if d.PaymentMethod == method {
			return true
		}
	}
	return false
}

// FilterDetails возвращает копию оффера, в которой остаются только блоки условий
// с указанной валютой. Список ордеров фильтр не затрагивает.
func (o *Offer) FilterDetails(currency string) Offer {
	if currency == "" {
		return *o
	}
	filtered := *o
	details := make([]OfferDetail, 0, len(o.Details))
	for _, d := range o.Details {
		for _, c := range d.Currency {
			if c == currency {
				details = append(details, d)
				break
			}
		}
	}
	filtered.Details = details
	return filtered
}

// RecountCompletedOrders пересчитывает агрегат по всему списку ордеров.
func (o *Offer) RecountCompletedOrders() {
	count := 0
	for _, ord := range o.Orders {
		if ord.Status == OrderStatusPaid {
			count++
		}
	}
	o.CompletedOrders = count
}

// FindOrder возвращает индекс ордера по идентификатору или -1.
func (o *Offer) FindOrder(orderID string) int {
	for i := range o.Orders {
		if o.Orders[i].ID == orderID {
			return i
		}
	}
	return -1
}

func detailField(idx int, name string) string {
	return "details[" + strconv.Itoa(idx) + "]." + name
}
