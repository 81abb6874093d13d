package handle

import (
	"encoding/json"
	"net/http"
	"strings"

	"giaoan/api/internal/logger"
)

type CredentialStatus struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
}

type CredentialRequest struct {
	APIKey string `json:"api_key"`
}

// Credential shows (masked), replaces or clears the stored API key.
func (h *Handle) Credential(w http.ResponseWriter, r *http.Request) {
	if h.creds == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "credential store is not configured"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		key, err := h.creds.Load()
		if err != nil {
			h.log.Error("credential load failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "credential store unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, CredentialStatus{Configured: key != "", Masked: logger.Mask(key)})

	case http.MethodPut:
		var req CredentialRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json: " + err.Error()})
			return
		}
		if strings.TrimSpace(req.APIKey) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "api_key is empty"})
			return
		}
		if err := h.creds.Save(req.APIKey); err != nil {
			h.log.Error("credential save failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "credential store unavailable"})
			return
		}
		h.log.Info("credential replaced", "api_key", req.APIKey)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := h.creds.Clear(); err != nil {
			h.log.Error("credential clear failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "credential store unavailable"})
			return
		}
		h.log.Info("credential cleared")
		w.WriteHeader(http.StatusNoContent)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET, PUT or DELETE only"})
	}
}
