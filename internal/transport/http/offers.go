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

// dataResponse — конверт успешного ответа по офферам.
type dataResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// maxOfferBody ограничивает размер тела запроса оффера.
const maxOfferBody = 1 << 20

// offerPayload — поля оффера, принимаемые от клиента. Адрес, профиль
// и список ордеров клиент задавать не может.
type offerPayload struct {
	Details      []domain.OfferDetail `json:"details"`
	MinPkoin     float64              `json:"minPkoin"`
	MaxPkoin     float64              `json:"maxPkoin"`
	Margin       float64              `json:"margin"`
	Telegram     string               `json:"telegram"`
	TransferTime string               `json:"transferTime"`
}

func (s *Server) handleUpsertOffer(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeOfferPayload(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	in := domain.Offer{
		Address:      callerAddress(r.Context()),
		Details:      payload.Details,
		MinPkoin:     payload.MinPkoin,
		MaxPkoin:     payload.MaxPkoin,
		Margin:       payload.Margin,
		Telegram:     payload.Telegram,
		TransferTime: payload.TransferTime,
	}

	res, err := s.offers.CreateOrUpdate(r.Context(), in)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	if res.Created {
		writeJSON(w, http.StatusCreated, dataResponse{Message: "payment created", Data: res.Offer})
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "payment updated", Data: res.Offer})
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.offers.List(r.Context(), r.URL.Query().Get("currency"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "payments fetched", Data: offers})
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		badRequest(w, "payment id must be a number")
		return
	}

	offer, err := s.offers.GetByID(r.Context(), id, r.URL.Query().Get("currency"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "payment fetched", Data: offer})
}

func (s *Server) handleGetOwnOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := s.offers.GetByAddress(r.Context(), callerAddress(r.Context()))
	if err != nil {
		// Отсутствие собственного оффера — штатный ответ, не ошибка.
		if errors.Is(err, domain.ErrOfferNotFound) {
			writeJSON(w, http.StatusOK, dataResponse{Message: "payment not found", Data: nil})
			return
		}
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "payment fetched", Data: offer})
}

// decodeOfferPayload принимает JSON либо форму в стиле исходного API:
// числовые поля приходят строками, details — JSON-строкой.
func decodeOfferPayload(r *http.Request) (offerPayload, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var payload offerPayload
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxOfferBody))
		if err := dec.Decode(&payload); err != nil {
			return offerPayload{}, errors.New("invalid json body")
		}
		return payload, nil
	}

	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxOfferBody); err != nil {
			return offerPayload{}, errors.New("invalid multipart form")
		}
	} else if err := r.ParseForm(); err != nil {
		return offerPayload{}, errors.New("invalid form body")
	}

	var payload offerPayload
	var err error
	if payload.MinPkoin, err = formFloat(r, "minPkoin"); err != nil {
		return offerPayload{}, err
	}
	if payload.MaxPkoin, err = formFloat(r, "maxPkoin"); err != nil {
		return offerPayload{}, err
	}
	if payload.Margin, err = formFloat(r, "margin"); err != nil {
		return offerPayload{}, err
	}
	payload.Telegram = r.FormValue("telegram")
	payload.TransferTime = r.FormValue("transferTime")

	if raw := r.FormValue("details"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload.Details); err != nil {
			return offerPayload{}, errors.New("details must be a json array")
		}
	}
	return payload, nil
}

func formFloat(r *http.Request, field string) (float64, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(field + " must be a number")
	}
	return v, nil
}
