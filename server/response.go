package server

import (
	"encoding/json"
	"net/http"

	"Melodix/logger"
)

// envelope is the JSON body shape shared by every API response:
// {"success": bool, "message": string, ...payload}.
type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

// writeOK sends a successful envelope. message may be empty.
func writeOK(w http.ResponseWriter, status int, message string, payload envelope) {
	body := envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError sends a failed envelope. A non-nil err is logged and echoed in
// the "error" field for server side failures only.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := envelope{"success": false, "message": message}
	if err != nil {
		if status >= http.StatusInternalServerError {
			logger.Error(message, logger.ErrorField(err))
			body["error"] = err.Error()
		} else {
			logger.Debug(message, logger.ErrorField(err))
		}
	}
	writeJSON(w, status, body)
}
