package domain_test

import (
	"testing"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
)

func makeOrder() domain.Order {
	return domain.Order{
		ID:                  "order-1",
		CounterpartyAddress: "taker-address",
		UnitPrice:           1.5,
		FiatPrice:           150,
		FiatCurrency:        "USD",
		PaymentMethod:       "SEPA",
		Currency:            "USD",
		Status:              domain.OrderStatusPending,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	offer := makeOffer()
	order := makeOrder()
	if errs := order.ValidateInvariants(&offer); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{name: "no counterparty", mut: func(o *domain.Order) { o.CounterpartyAddress = "" }},
		{name: "unit price not positive", mut: func(o *domain.Order) { o.UnitPrice = 0 }},
		{name: "fiat price negative", mut: func(o *domain.Order) { o.FiatPrice = -1 }},
		{name: "empty fiat currency", mut: func(o *domain.Order) { o.FiatCurrency = "" }},
		{name: "empty currency", mut: func(o *domain.Order) { o.Currency = "" }},
		{name: "empty payment method", mut: func(o *domain.Order) { o.PaymentMethod = "" }},
		{name: "unadvertised payment method", mut: func(o *domain.Order) { o.PaymentMethod = "cash" }},
		{name: "unknown status", mut: func(o *domain.Order) { o.Status = "broken" }},
	}

	offer := makeOffer()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			if len(order.ValidateInvariants(&offer)) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestOrderStatusValid(t *testing.T) {
	tests := []struct {
		status domain.OrderStatus
		want   bool
	}{
		{domain.OrderStatusPending, true},
		{domain.OrderStatusPaid, true},
		{domain.OrderStatusCanceled, true},
		{domain.OrderStatus("refunded"), false},
		{domain.OrderStatus(""), false},
	}

	for _, tc := range tests {
		if got := tc.status.Valid(); got != tc.want {
			t.Fatalf("status %q valid=%v, want %v", tc.status, got, tc.want)
		}
	}
}
