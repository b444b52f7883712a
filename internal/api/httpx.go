package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"paginas/internal/store"
)

const maxWebhookBodyBytes int64 = 1 << 20 // 1 MiB

func validWebhookSignature(secret string, body []byte, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	parts := strings.SplitN(header, "=", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "sha256") {
		return false
	}
	raw, err := hex.DecodeString(strings.TrimSpace(parts[1]))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(mac.Sum(nil), raw)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func decodeJSONBytes(body []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, errCode, message string, details interface{}, retryable bool) {
	writeJSON(w, code, map[string]interface{}{
		"error": map[string]interface{}{
			"code":      errCode,
			"message":   message,
			"details":   details,
			"retryable": retryable,
		},
	})
}

// writeNotFound is the uniform masked response: a resource that does not
// exist and a resource owned by another tenant produce the same bytes.
func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "not found", nil, false)
}

func handleStoreErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil, false)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil, false)
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w)
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil, true)
	}
}
