package http

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
)

// errorResponse — конверт ошибки: текст и, для ошибок валидации,
// список нарушений по полям.
type errorResponse struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("write http response")
	}
}

// writeError отображает доменную ошибку в HTTP статус и конверт.
// Внутренние детали наружу не отдаются.
func writeError(w http.ResponseWriter, logger *log.Entry, err error) {
	if verr, ok := domain.AsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "validation error",
			Errors:  verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrOfferNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: domain.ErrOfferNotFound.Error()})
	case errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: domain.ErrOrderNotFound.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: domain.ErrUnauthorized.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Message: domain.ErrForbidden.Error()})
	case errors.Is(err, domain.ErrInvalidPagination):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: domain.ErrInvalidPagination.Error()})
	case errors.Is(err, domain.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: domain.ErrInvalidStatus.Error()})
	case domain.IsVersionConflict(err):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "concurrent update, retry the request"})
	default:
		if logger != nil {
			logger.WithError(err).Error("request failed")
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Message: message})
}
