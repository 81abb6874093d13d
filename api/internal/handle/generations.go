package handle

import (
	"net/http"
	"strconv"

	"giaoan/api/internal/store"
)

// Generations lists the most recent journal rows (?limit=, default 50).
func (h *Handle) Generations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	if h.history == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "journal is not configured"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("journal read failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
		return
	}
	if rows == nil {
		rows = []store.Generation{}
	}
	writeJSON(w, http.StatusOK, rows)
}
