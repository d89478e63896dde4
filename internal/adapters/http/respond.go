package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"certflow/internal/apperr"
)

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Data: data})
}

// writeError maps the taxonomy onto HTTP status codes. Store failures come
// back as 502 with only the step exposed, never the raw cause.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := statusFor(code)

	body := errorBody{Code: string(code), Step: apperr.StepOf(err)}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
	} else {
		body.Message = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: body})
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validationf("invalid request body: %v", err)
	}
	return nil
}
