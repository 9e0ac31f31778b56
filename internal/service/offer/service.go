// Package offer реализует бизнес-логику офферов: создание и обновление
// объявления мейкера, выборку каталога и фильтрацию по валюте.
package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
	"github.com/andyoknen/p2p-bastyon-backend/internal/messaging/kafka"
	"github.com/andyoknen/p2p-bastyon-backend/internal/metrics"
)

// Service обслуживает операции над офферами.
type Service struct {
	repo      domain.OfferRepository
	profiles  domain.ProfileProvider
	publisher domain.EventPublisher
	metrics   *metrics.ExchangeMetrics
	logger    *log.Entry
}

// NewService конструирует сервис офферов с зависимостями.
func NewService(
	repo domain.OfferRepository,
	profiles domain.ProfileProvider,
	publisher domain.EventPublisher,
	m *metrics.ExchangeMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "offer-service")
	}
	return &Service{
		repo:      repo,
		profiles:  profiles,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// UpsertResult описывает исход CreateOrUpdate.
type UpsertResult struct {
	Offer   domain.Offer
	Created bool
}

// CreateOrUpdate создаёт оффер для адреса либо обновляет существующий.
// Профиль владельца запрашивается до записи: если внешний сервис недоступен,
// хранилище не меняется. При обновлении список ордеров и агрегаты
// переносятся из существующего оффера без изменений.
func (s *Service) CreateOrUpdate(ctx context.Context, in domain.Offer) (UpsertResult, error) {
	if fields := in.ValidateInvariants(); len(fields) > 0 {
		return UpsertResult{}, domain.NewValidationError(fields...)
	}

	profile, err := s.profiles.GetUserProfile(ctx, in.Address)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("get user profile: %w", err)
	}
	in.UserName = profile.Name
	in.Avatar = profile.Avatar

	existing, err := s.repo.GetByAddress(in.Address)
	switch {
	case err == nil:
		updated, err := s.update(existing, in)
		if err != nil {
			return UpsertResult{}, err
		}
		s.publishOfferEvent(kafka.EventTypeOfferUpdated, updated)
		if s.metrics != nil {
			s.metrics.RecordOfferUpdated()
		}
		return UpsertResult{Offer: updated, Created: false}, nil
	case errors.Is(err, domain.ErrOfferNotFound):
		created, err := s.create(in)
		if err != nil {
			return UpsertResult{}, err
		}
		s.publishOfferEvent(kafka.EventTypeOfferCreated, created)
		if s.metrics != nil {
			s.metrics.RecordOfferCreated()
		}
		return UpsertResult{Offer: created, Created: true}, nil
	default:
		return UpsertResult{}, fmt.Errorf("get offer by address: %w", err)
	}
}

func (s *Service) create(in domain.Offer) (domain.Offer, error) {
	now := time.Now().UTC()
	in.CreatedAt = now
	in.UpdatedAt = now
	in.Orders = nil
	in.CompletedOrders = 0

	created, err := s.repo.Create(in)
	if err != nil {
		if domain.IsVersionConflict(err) {
			// Параллельный запрос успел создать оффер для того же адреса.
			return domain.Offer{}, err
		}
		return domain.Offer{}, fmt.Errorf("create offer: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"offer_id": created.ID,
		"address":  created.Address,
	}).Info("offer created")

	return created, nil
}

func (s *Service) update(existing, in domain.Offer) (domain.Offer, error) {
	// Идентичность и история ордеров принадлежат существующему офферу.
	in.ID = existing.ID
	in.Orders = existing.Orders
	in.CompletedOrders = existing.CompletedOrders
	in.Version = existing.Version
	in.CreatedAt = existing.CreatedAt
	in.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(in); err != nil {
		if domain.IsVersionConflict(err) && s.metrics != nil {
			s.metrics.RecordSaveConflict()
		}
		return domain.Offer{}, fmt.Errorf("save offer: %w", err)
	}

	updated, err := s.repo.GetByID(in.ID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("reload offer: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"offer_id": updated.ID,
		"address":  updated.Address,
	}).Info("offer updated")

	return updated, nil
}

// List возвращает каталог офферов. Непустая currency оставляет только офферы,
// принимающие эту валюту, с отфильтрованными блоками условий.
func (s *Service) List(_ context.Context, currency string) ([]domain.Offer, error) {
	offers, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	if currency == "" {
		return offers, nil
	}

	filtered := make([]domain.Offer, 0, len(offers))
	for i := range offers {
		if !offers[i].AcceptsCurrency(currency) {
			continue
		}
		filtered = append(filtered, offers[i].FilterDetails(currency))
	}
	return filtered, nil
}

// GetByID возвращает оффер по идентификатору, опционально фильтруя
// блоки условий по валюте.
func (s *Service) GetByID(_ context.Context, id int64, currency string) (domain.Offer, error) {
	offer, err := s.repo.GetByID(id)
	if err != nil {
		return domain.Offer{}, err
	}
	if currency != "" {
		offer = offer.FilterDetails(currency)
	}
	return offer, nil
}

// GetByAddress возвращает оффер владельца адреса. Отсутствие оффера —
// обычный исход для адреса, который ещё ничего не публиковал.
func (s *Service) GetByAddress(_ context.Context, address string) (domain.Offer, error) {
	return s.repo.GetByAddress(address)
}

func (s *Service) publishOfferEvent(eventType kafka.EventType, offer domain.Offer) {
	if s.publisher == nil {
		return
	}
	event := kafka.NewOfferEvent(eventType, offer.ID, offer.Address)
	if err := s.publisher.PublishEvent(kafka.TopicOfferEvents, kafka.OfferKey(offer.ID), event); err != nil {
		// Публикация best-effort: сбой брокера не откатывает запись.
		s.logger.WithError(err).WithField("offer_id", offer.ID).Warn("publish offer event failed")
	}
}
