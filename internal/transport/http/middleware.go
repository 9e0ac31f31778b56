package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
	"github.com/andyoknen/p2p-bastyon-backend/internal/metrics"
)

type contextKey string

// addressContextKey хранит подтверждённый адрес вызывающего в контексте запроса.
const addressContextKey contextKey = "caller-address"

// signatureHeader — заголовок с JSON-подписью Bastyon.
const signatureHeader = "Signature"

// requireSignature разбирает заголовок Signature, проверяет подпись через
// verifier и кладёт подтверждённый адрес в контекст. Адрес из тела запроса
// нигде ниже по стеку не используется.
func (s *Server) requireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(signatureHeader))
		if raw == "" {
			writeError(w, s.logger, domain.ErrUnauthorized)
			return
		}

		var sig domain.Signature
		if err := json.Unmarshal([]byte(raw), &sig); err != nil {
			writeError(w, s.logger, domain.ErrUnauthorized)
			return
		}

		address, err := s.verifier.VerifySignature(r.Context(), sig)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), addressContextKey, address)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerAddress возвращает адрес из контекста, пустая строка — не аутентифицирован.
func callerAddress(ctx context.Context) string {
	address, _ := ctx.Value(addressContextKey).(string)
	return address
}

// requestMetrics пишет длительность запроса с меткой шаблона маршрута.
func requestMetrics(m *metrics.ExchangeMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequestDuration(route, r.Method, time.Since(start))
		})
	}
}
