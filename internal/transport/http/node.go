package http

import (
	"encoding/json"
	"net/http"
)

// handleNodeInfo проксирует сведения об узле Bastyon без преобразования.
func (s *Server) handleNodeInfo(w http.ResponseWriter, r *http.Request) {
	if s.node == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "node info is not available"})
		return
	}

	info, err := s.node.GetNodeInfo(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}{Message: "node info fetched", Data: info})
}
