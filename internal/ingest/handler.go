package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/tendervault/tendervault/pkg/httpx"
)

const (
	signatureHeader = "X-Signature"
	maxBodyBytes    = 1 << 20
)

// Handler is the HTTP ingress for externally delivered notification
// batches. The content store signs the raw body with a shared HMAC secret.
type Handler struct {
	processor *Processor
	secret    []byte
}

func NewHandler(processor *Processor, secret string) *Handler {
	return &Handler{processor: processor, secret: []byte(secret)}
}

func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.NewRequestID()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		httpx.WriteError(w, requestID, httpx.E(http.StatusBadRequest, "BAD_BODY", "could not read request body"))
		return
	}
	if !h.validSignature(r.Header.Get(signatureHeader), rawBody) {
		httpx.WriteError(w, requestID, httpx.E(http.StatusForbidden, "BAD_SIGNATURE", "notification signature is invalid"))
		return
	}

	var payload struct {
		Events []Event `json:"events"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		httpx.WriteError(w, requestID, httpx.E(http.StatusBadRequest, "BAD_JSON", "notification payload is not valid JSON"))
		return
	}

	// Items fail or succeed individually; the batch as a whole is always
	// accepted once authenticated.
	h.processor.Process(r.Context(), payload.Events)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"requestId": requestID,
		"received":  len(payload.Events),
	})
}

func (h *Handler) validSignature(sigHex string, body []byte) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), sig)
}
