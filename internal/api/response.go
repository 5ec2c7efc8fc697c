package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

// writeJSONResponse marshals the response envelope and writes it with the
// given status. A marshal failure falls back to a canned error body so the
// client always receives valid JSON.
func writeJSONResponse(w http.ResponseWriter, status int, resp models.APIResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("api.writeJSONResponse: failed to marshal response", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"status":"error","message":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Error("api.writeJSONResponse: failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSONResponse(w, status, models.Error(message))
}
