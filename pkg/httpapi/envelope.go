package httpapi

import (
	"encoding/json"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every backend payload.
type Envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Envelope) OK() bool {
	return e.Status == StatusSuccess
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

// WriteSuccess encodes data into a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) error {
	env := &Envelope{Status: StatusSuccess, Code: status, Message: http.StatusText(status)}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		env.Data = raw
	}
	return WriteJSON(w, status, env)
}

func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, &Envelope{
		Status:  StatusError,
		Code:    status,
		Message: message,
	})
}
