// Package order реализует жизненный цикл ордеров: добавление заявки тейкера,
// смену статуса мейкером и постраничную выборку истории.
package order

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
	"github.com/andyoknen/p2p-bastyon-backend/internal/messaging/kafka"
	"github.com/andyoknen/p2p-bastyon-backend/internal/metrics"
)

// Параметры повторов read-modify-write при конфликте версий. Задержка
// с джиттером разводит конкурентов по времени, поэтому лимита попыток
// хватает даже при плотной конкуренции за один оффер.
const (
	maxSaveAttempts  = 15
	retryBaseDelay   = time.Millisecond
	retryDelayJitter = 4
)

// Service обслуживает операции над ордерами внутри офферов.
type Service struct {
	repo      domain.OfferRepository
	publisher domain.EventPublisher
	metrics   *metrics.ExchangeMetrics
	logger    *log.Entry
}

// NewService конструирует сервис ордеров с зависимостями.
func NewService(
	repo domain.OfferRepository,
	publisher domain.EventPublisher,
	m *metrics.ExchangeMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Append добавляет ордер тейкера к офферу. Адрес контрагента всегда берётся
// из проверенной подписи, статус принудительно pending. Конфликты версий
// при параллельных добавлениях разрешаются повтором всего цикла
// чтение-изменение-запись, ни один ордер при этом не теряется.
func (s *Service) Append(ctx context.Context, offerID int64, takerAddress string, in domain.Order) (domain.Order, error) {
	in.ID = uuid.NewString()
	in.CounterpartyAddress = takerAddress
	in.Status = domain.OrderStatusPending
	in.CreatedAt = time.Now().UTC()

	var appended domain.Order
	err := s.withRetry(ctx, offerID, func(offer *domain.Offer) error {
		if fields := in.ValidateInvariants(offer); len(fields) > 0 {
			return domain.NewValidationError(fields...)
		}
		offer.Orders = append(offer.Orders, in)
		appended = in
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.publishOrderEvent(kafka.EventTypeOrderCreated, offerID, appended)

	s.logger.WithFields(log.Fields{
		"offer_id": offerID,
		"order_id": appended.ID,
	}).Info("order appended")

	return appended, nil
}

// TransitionStatus меняет статус ордера. Разрешено только владельцу оффера;
// агрегат completedOrders пересчитывается и сохраняется атомарно со статусом.
func (s *Service) TransitionStatus(ctx context.Context, offerID int64, orderID, callerAddress string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus
	}

	var changed domain.Order
	err := s.withRetry(ctx, offerID, func(offer *domain.Offer) error {
		if offer.Address != callerAddress {
			return domain.ErrForbidden
		}
		idx := offer.FindOrder(orderID)
		if idx < 0 {
			return domain.ErrOrderNotFound
		}
		offer.Orders[idx].Status = status
		offer.RecountCompletedOrders()
		changed = offer.Orders[idx]
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(status))
	}
	s.publishOrderEvent(kafka.EventTypeOrderStatusChanged, offerID, changed)

	s.logger.WithFields(log.Fields{
		"offer_id": offerID,
		"order_id": orderID,
		"status":   status,
	}).Info("order status changed")

	return changed, nil
}

// Get возвращает ордер оффера по идентификатору.
func (s *Service) Get(_ context.Context, offerID int64, orderID string) (domain.Order, error) {
	offer, err := s.repo.GetByID(offerID)
	if err != nil {
		return domain.Order{}, err
	}
	idx := offer.FindOrder(orderID)
	if idx < 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return offer.Orders[idx], nil
}

// Page описывает страницу выдачи ордеров.
type Page struct {
	Orders     []domain.Order `json:"orders"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
}

// List возвращает страницу ордеров оффера в обратном хронологическом порядке:
// первая страница содержит самые свежие ордера.
func (s *Service) List(_ context.Context, offerID int64, page, limit int) (Page, error) {
	if page < 1 || limit < 1 {
		return Page{}, domain.ErrInvalidPagination
	}

	offer, err := s.repo.GetByID(offerID)
	if err != nil {
		return Page{}, err
	}

	total := len(offer.Orders)
	totalPages := (total + limit - 1) / limit

	// Ордера хранятся append-only, поэтому обратный хронологический
	// порядок — это обход хранимого списка с конца.
	reversed := make([]domain.Order, 0, total)
	for i := total - 1; i >= 0; i-- {
		reversed = append(reversed, offer.Orders[i])
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return Page{
		Orders:     reversed[start:end],
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// withRetry выполняет цикл чтение-изменение-запись с повторами
// при конфликте версий.
func (s *Service) withRetry(ctx context.Context, offerID int64, mutate func(*domain.Offer) error) error {
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		offer, err := s.repo.GetByID(offerID)
		if err != nil {
			return err
		}
		if err := mutate(&offer); err != nil {
			return err
		}
		offer.UpdatedAt = time.Now().UTC()

		err = s.repo.Save(offer)
		if err == nil {
			return nil
		}
		if !domain.IsVersionConflict(err) {
			return fmt.Errorf("save offer: %w", err)
		}

		if s.metrics != nil {
			s.metrics.RecordSaveConflict()
		}
		s.logger.WithFields(log.Fields{
			"offer_id": offerID,
			"attempt":  attempt,
		}).Debug("version conflict, retrying")

		delay := retryBaseDelay * time.Duration(1+rand.Intn(retryDelayJitter))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return domain.ErrOfferVersionConflict
}

func (s *Service) publishOrderEvent(eventType kafka.EventType, offerID int64, ord domain.Order) {
	if s.publisher == nil {
		return
	}
	event := kafka.NewOrderEvent(eventType, offerID, ord.ID, ord.CounterpartyAddress, string(ord.Status))
	if err := s.publisher.PublishEvent(kafka.TopicOrderEvents, kafka.OfferKey(offerID), event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"offer_id": offerID,
			"order_id": ord.ID,
		}).Warn("publish order event failed")
	}
}
