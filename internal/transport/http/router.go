// Package http реализует JSON-поверхность сервиса поверх chi:
// маршруты офферов и ордеров, аутентификацию по подписи и выдачу загрузок.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
	"github.com/andyoknen/p2p-bastyon-backend/internal/metrics"
	offersvc "github.com/andyoknen/p2p-bastyon-backend/internal/service/offer"
	ordersvc "github.com/andyoknen/p2p-bastyon-backend/internal/service/order"
)

// NodeInfoProvider отдаёт сведения об узле Bastyon как есть, без разбора.
type NodeInfoProvider interface {
	GetNodeInfo(ctx context.Context) (json.RawMessage, error)
}

// Server собирает HTTP-обработчики и их зависимости.
type Server struct {
	offers   *offersvc.Service
	orders   *ordersvc.Service
	verifier domain.SignatureVerifier
	blobs    domain.BlobStore
	node     NodeInfoProvider

	uploadDir string
	metrics   *metrics.ExchangeMetrics
	logger    *log.Entry
}

// NewServer конструирует сервер. node и uploadDir опциональны: при пустых
// значениях соответствующие маршруты отвечают 404.
func NewServer(
	offers *offersvc.Service,
	orders *ordersvc.Service,
	verifier domain.SignatureVerifier,
	blobs domain.BlobStore,
	node NodeInfoProvider,
	uploadDir string,
	m *metrics.ExchangeMetrics,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "http-server")
	}
	return &Server{
		offers:    offers,
		orders:    orders,
		verifier:  verifier,
		blobs:     blobs,
		node:      node,
		uploadDir: uploadDir,
		metrics:   m,
		logger:    logger,
	}
}

// Router строит дерево маршрутов.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics(s.metrics))

	r.Group(func(r chi.Router) {
		r.Use(s.requireSignature)

		r.Post("/add-payment", s.handleUpsertOffer)
		r.Get("/payments/address/me", s.handleGetOwnOffer)
		r.Post("/payments/{paymentId}/add-order", s.handleAppendOrder)
		r.Patch("/payments/{paymentId}/orders/{orderId}/status", s.handleTransitionStatus)
	})

	r.Get("/payments", s.handleListOffers)
	r.Get("/payments/{id}", s.handleGetOffer)
	r.Get("/payments/{paymentId}/orders", s.handleListOrders)
	r.Get("/payments/{paymentId}/orders/{orderId}", s.handleGetOrder)
	r.Get("/node-info", s.handleNodeInfo)

	if s.uploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	return r
}
