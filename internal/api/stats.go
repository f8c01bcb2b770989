package api

import (
	"net/http"
)

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.metrics.Snapshot()
	if err != nil {
		s.logger.Error("snapshot metrics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to snapshot metrics")
		return
	}

	s.writeJSON(w, http.StatusOK, snap)
}
