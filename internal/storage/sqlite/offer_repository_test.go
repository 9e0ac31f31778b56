package sqlite_test

import (
	"testing"
	"time"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
	"github.com/andyoknen/p2p-bastyon-backend/internal/storage/sqlite"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func newOffer(address string) domain.Offer {
	now := time.Now().UTC().Round(time.Second)
	return domain.Offer{
		Address:  address,
		UserName: "maker",
		Avatar:   "avatar-ref",
		Details: []domain.OfferDetail{
			{Currency: []string{"USD"}, PaymentMethod: "SEPA", Language: "en"},
		},
		MinPkoin:     10,
		MaxPkoin:     100,
		Margin:       2,
		Telegram:     "@maker",
		TransferTime: "30m",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestOfferRepository_SQLiteRoundTrip(t *testing.T) {
	repo := sqlite.NewOfferRepository(openTestStore(t))

	created, err := repo.Create(newOffer("maker-1"))
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := repo.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	if got.Address != "maker-1" || len(got.Details) != 1 {
		t.Fatalf("unexpected offer: %+v", got)
	}
	if len(got.Orders) != 0 {
		t.Fatalf("expected empty orders, got %d", len(got.Orders))
	}

	got.Orders = append(got.Orders, domain.Order{
		ID:                  "order-1",
		CounterpartyAddress: "taker-1",
		UnitPrice:           1.5,
		FiatPrice:           150,
		FiatCurrency:        "USD",
		PaymentMethod:       "SEPA",
		Currency:            "USD",
		Status:              domain.OrderStatusPending,
		CreatedAt:           time.Now().UTC().Round(time.Second),
	})
	if err := repo.Save(got); err != nil {
		t.Fatalf("save offer: %v", err)
	}

	reloaded, err := repo.GetByAddress("maker-1")
	if err != nil {
		t.Fatalf("get by address: %v", err)
	}
	if len(reloaded.Orders) != 1 || reloaded.Orders[0].ID != "order-1" {
		t.Fatalf("unexpected orders: %+v", reloaded.Orders)
	}
}

func TestOfferRepository_SQLiteDuplicateAddress(t *testing.T) {
	repo := sqlite.NewOfferRepository(openTestStore(t))

	if _, err := repo.Create(newOffer("maker-1")); err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := repo.Create(newOffer("maker-1")); !domain.IsVersionConflict(err) {
		t.Fatalf("expected conflict for duplicate address, got %v", err)
	}
}

func TestOfferRepository_SQLiteVersionConflict(t *testing.T) {
	repo := sqlite.NewOfferRepository(openTestStore(t))

	created, err := repo.Create(newOffer("maker-1"))
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	fresh := created
	fresh.Telegram = "@fresh"
	if err := repo.Save(fresh); err != nil {
		t.Fatalf("first save: %v", err)
	}

	stale := created
	stale.Telegram = "@stale"
	if err := repo.Save(stale); !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestOfferRepository_SQLiteGetMissing(t *testing.T) {
	repo := sqlite.NewOfferRepository(openTestStore(t))

	if _, err := repo.GetByID(42); err != domain.ErrOfferNotFound {
		t.Fatalf("expected ErrOfferNotFound, got %v", err)
	}
	if _, err := repo.GetByAddress("ghost"); err != domain.ErrOfferNotFound {
		t.Fatalf("expected ErrOfferNotFound, got %v", err)
	}
}
