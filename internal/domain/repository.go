package domain

// OfferRepository описывает требования к хранилищу офферов.
// Оффер и его ордера читаются и сохраняются как единое целое.
type OfferRepository interface {
	// Create сохраняет новый оффер и возвращает его с присвоенным ID.
	// Возвращает ErrOfferVersionConflict, если оффер для адреса уже существует.
	Create(offer Offer) (Offer, error)
	// GetByID возвращает оффер по идентификатору или ErrOfferNotFound.
	GetByID(id int64) (Offer, error)
	// GetByAddress возвращает оффер владельца или ErrOfferNotFound.
	GetByAddress(address string) (Offer, error)
	// List возвращает все офферы.
	List() ([]Offer, error)
	// Save применяет обновления к офферу с учётом optimistic locking.
	Save(offer Offer) error
}
