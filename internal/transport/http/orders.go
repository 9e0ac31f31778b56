package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
)

const (
	// maxOrderBody ограничивает тело запроса с учётом вложения paymentProof.
	maxOrderBody = 8 << 20

	defaultOrdersPage  = 1
	defaultOrdersLimit = 10
)

// orderView — ордер в ответе API, дополненный идентификатором оффера
// и адресом мейкера.
type orderView struct {
	domain.Order
	PaymentID    int64  `json:"paymentId"`
	MakerAddress string `json:"makerAddress"`
}

type orderResponse struct {
	Message string    `json:"message"`
	Order   orderView `json:"order"`
}

type ordersResponse struct {
	Message    string      `json:"message"`
	Orders     []orderView `json:"orders"`
	Pagination pagination  `json:"pagination"`
}

type pagination struct {
	Page        int `json:"page"`
	Limit       int `json:"limit"`
	TotalOrders int `json:"totalOrders"`
	TotalPages  int `json:"totalPages"`
}

// orderPayload — поля ордера, принимаемые от клиента. Контрагент и статус
// назначаются сервером.
type orderPayload struct {
	UnitPrice     float64 `json:"unitPrice"`
	FiatPrice     float64 `json:"fiatPrice"`
	FiatCurrency  string  `json:"fiatCurrency"`
	PaymentMethod string  `json:"paymentMethod"`
	Currency      string  `json:"currency"`
}

func (s *Server) handleAppendOrder(w http.ResponseWriter, r *http.Request) {
	offerID, ok := paymentID(w, r)
	if !ok {
		return
	}

	payload, proofRef, err := s.decodeOrderPayload(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	in := domain.Order{
		UnitPrice:     payload.UnitPrice,
		FiatPrice:     payload.FiatPrice,
		FiatCurrency:  payload.FiatCurrency,
		PaymentMethod: payload.PaymentMethod,
		Currency:      payload.Currency,
		PaymentProof:  proofRef,
	}

	created, err := s.orders.Append(r.Context(), offerID, callerAddress(r.Context()), in)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	view, err := s.orderView(r, offerID, created)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Message: "order created", Order: view})
}

func (s *Server) handleTransitionStatus(w http.ResponseWriter, r *http.Request) {
	offerID, ok := paymentID(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOfferBody)).Decode(&body); err != nil {
		badRequest(w, "invalid json body")
		return
	}

	changed, err := s.orders.TransitionStatus(r.Context(), offerID, orderID, callerAddress(r.Context()), domain.OrderStatus(body.Status))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	view, err := s.orderView(r, offerID, changed)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Message: "order status updated", Order: view})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	offerID, ok := paymentID(w, r)
	if !ok {
		return
	}

	ord, err := s.orders.Get(r.Context(), offerID, chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	view, err := s.orderView(r, offerID, ord)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Message: "order fetched", Order: view})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	offerID, ok := paymentID(w, r)
	if !ok {
		return
	}

	page, err := queryInt(r, "page", defaultOrdersPage)
	if err != nil {
		badRequest(w, "page must be a number")
		return
	}
	limit, err := queryInt(r, "limit", defaultOrdersLimit)
	if err != nil {
		badRequest(w, "limit must be a number")
		return
	}

	result, err := s.orders.List(r.Context(), offerID, page, limit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	offer, err := s.offers.GetByID(r.Context(), offerID, "")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	views := make([]orderView, 0, len(result.Orders))
	for _, ord := range result.Orders {
		views = append(views, orderView{Order: ord, PaymentID: offerID, MakerAddress: offer.Address})
	}

	writeJSON(w, http.StatusOK, ordersResponse{
		Message: "orders fetched",
		Orders:  views,
		Pagination: pagination{
			Page:        result.Page,
			Limit:       result.Limit,
			TotalOrders: result.Total,
			TotalPages:  result.TotalPages,
		},
	})
}

// orderView дополняет ордер адресом мейкера владеющего оффера.
func (s *Server) orderView(r *http.Request, offerID int64, ord domain.Order) (orderView, error) {
	offer, err := s.offers.GetByID(r.Context(), offerID, "")
	if err != nil {
		return orderView{}, err
	}
	return orderView{Order: ord, PaymentID: offerID, MakerAddress: offer.Address}, nil
}

// decodeOrderPayload принимает JSON либо multipart-форму с необязательным
// вложением paymentProof, которое сохраняется в blob-хранилище.
func (s *Server) decodeOrderPayload(r *http.Request) (orderPayload, string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var payload orderPayload
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxOrderBody))
		if err := dec.Decode(&payload); err != nil {
			return orderPayload{}, "", errors.New("invalid json body")
		}
		return payload, "", nil
	}

	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxOrderBody); err != nil {
			return orderPayload{}, "", errors.New("invalid multipart form")
		}
	} else if err := r.ParseForm(); err != nil {
		return orderPayload{}, "", errors.New("invalid form body")
	}

	var payload orderPayload
	var err error
	if payload.UnitPrice, err = formFloat(r, "unitPrice"); err != nil {
		return orderPayload{}, "", err
	}
	if payload.FiatPrice, err = formFloat(r, "fiatPrice"); err != nil {
		return orderPayload{}, "", err
	}
	payload.FiatCurrency = r.FormValue("fiatCurrency")
	payload.PaymentMethod = r.FormValue("paymentMethod")
	payload.Currency = r.FormValue("currency")

	proofRef := ""
	if file, header, ferr := r.FormFile("paymentProof"); ferr == nil {
		defer file.Close()
		if s.blobs == nil {
			return orderPayload{}, "", errors.New("uploads are not enabled")
		}
		proofRef, err = s.blobs.Store("paymentProof", header.Filename, file)
		if err != nil {
			return orderPayload{}, "", errors.New("failed to store payment proof")
		}
	}
	return payload, proofRef, nil
}

func paymentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "paymentId"), 10, 64)
	if err != nil {
		badRequest(w, "payment id must be a number")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
