package memory

import (
	"sort"
	"sync"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
)

// offerRepositoryInMemory — простая in-memory реализация OfferRepository.
type offerRepositoryInMemory struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Offer
}

// NewOfferRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOfferRepository() domain.OfferRepository {
	return &offerRepositoryInMemory{
		nextID: 1,
		items:  make(map[int64]domain.Offer),
	}
}

// Create сохраняет новый оффер и присваивает ему ID.
// Уникальность по адресу: второй оффер на тот же адрес не допускается.
func (r *offerRepositoryInMemory) Create(offer domain.Offer) (domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Address == offer.Address {
			return domain.Offer{}, domain.ErrOfferVersionConflict
		}
	}

	offer.ID = r.nextID
	r.nextID++
	offer.Version = 0
	// Сохраняем копию списка ордеров, чтобы избежать мутаций извне.
	offer.Orders = cloneOrders(offer.Orders)
	r.items[offer.ID] = offer
	return offer, nil
}

// GetByID возвращает оффер или ErrOfferNotFound.
func (r *offerRepositoryInMemory) GetByID(id int64) (domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offer, ok := r.items[id]
	if !ok {
		return domain.Offer{}, domain.ErrOfferNotFound
	}
	offer.Orders = cloneOrders(offer.Orders)
	return offer, nil
}

// GetByAddress возвращает оффер владельца или ErrOfferNotFound.
func (r *offerRepositoryInMemory) GetByAddress(address string) (domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, offer := range r.items {
		if offer.Address == address {
			offer.Orders = cloneOrders(offer.Orders)
			return offer, nil
		}
	}
	return domain.Offer{}, domain.ErrOfferNotFound
}

// List возвращает все офферы в порядке создания.
func (r *offerRepositoryInMemory) List() ([]domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Offer, 0, len(r.items))
	for _, offer := range r.items {
		offer.Orders = cloneOrders(offer.Orders)
		result = append(result, offer)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Save перезаписывает оффер целиком, проверяя версию (optimistic locking).
func (r *offerRepositoryInMemory) Save(offer domain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[offer.ID]
	if !ok {
		return domain.ErrOfferNotFound
	}
	if current.Version != offer.Version {
		return domain.ErrOfferVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	offer.Version++
	offer.Orders = cloneOrders(offer.Orders)
	r.items[offer.ID] = offer
	return nil
}

func cloneOrders(orders []domain.Order) []domain.Order {
	if orders == nil {
		return nil
	}
	cp := make([]domain.Order, len(orders))
	copy(cp, orders)
	return cp
}

var _ domain.OfferRepository = (*offerRepositoryInMemory)(nil)
