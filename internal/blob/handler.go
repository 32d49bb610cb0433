package blob

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendervault/tendervault/pkg/httpx"
)

const maxUploadBytes = 50 << 20 // matches the bid fileSize cap

// UploadedFunc is invoked once per completed upload with the stored version.
// The wiring feeds these into the upload-confirmation pipeline, which must
// tolerate duplicates.
type UploadedFunc func(r *http.Request, bucket string, v Version)

// Handler serves the presigned endpoints. It trusts nothing but the
// signature: no session, no role check, the URL itself is the credential.
type Handler struct {
	store    Store
	presign  *Presigner
	bucket   string
	log      *slog.Logger
	uploaded UploadedFunc
}

func NewHandler(store Store, presign *Presigner, bucket string, log *slog.Logger, uploaded UploadedFunc) *Handler {
	return &Handler{store: store, presign: presign, bucket: bucket, log: log, uploaded: uploaded}
}

func (h *Handler) Routes(r chi.Router) {
	r.Put("/blobs/*", h.handlePut)
	r.Get("/blobs/*", h.handleGet)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	requestID := httpx.NewRequestID()
	if err := h.presign.Verify(http.MethodPut, key, r.URL.Query()); err != nil {
		writePresignError(w, requestID, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.WriteError(w, requestID, httpx.E(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "upload exceeds the 50MB limit"))
			return
		}
		httpx.WriteError(w, requestID, httpx.E(http.StatusBadRequest, "BAD_BODY", "could not read request body"))
		return
	}

	v, err := h.store.Put(r.Context(), key, r.URL.Query().Get("contentType"), body)
	if err != nil {
		h.log.Error("blob put failed", "key", key, "error", err)
		httpx.WriteError(w, requestID, err)
		return
	}

	if h.uploaded != nil {
		h.uploaded(r, h.bucket, v)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"key":       v.Key,
		"versionId": v.VersionID,
		"size":      v.Size,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	requestID := httpx.NewRequestID()
	if err := h.presign.Verify(http.MethodGet, key, r.URL.Query()); err != nil {
		writePresignError(w, requestID, err)
		return
	}

	obj, err := h.store.Get(r.Context(), key, r.URL.Query().Get("versionId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionNotFound) {
			httpx.WriteError(w, requestID, httpx.E(http.StatusNotFound, "OBJECT_NOT_FOUND", "object not found"))
			return
		}
		h.log.Error("blob get failed", "key", key, "error", err)
		httpx.WriteError(w, requestID, err)
		return
	}

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if fn := r.URL.Query().Get("fileName"); fn != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fn))
	}
	w.Header().Set("X-Version-Id", obj.VersionID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Body)
}

func writePresignError(w http.ResponseWriter, requestID string, err error) {
	if errors.Is(err, ErrExpired) {
		httpx.WriteError(w, requestID, httpx.E(http.StatusForbidden, "URL_EXPIRED", "presigned url has expired"))
		return
	}
	httpx.WriteError(w, requestID, httpx.E(http.StatusForbidden, "BAD_SIGNATURE", "presigned url signature is invalid"))
}
