package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/model"
	"github.com/vyrodovalexey/shoplist/internal/notifier"
	"github.com/vyrodovalexey/shoplist/internal/shoplist"
)

// Version is the application version.
const Version = "1.0.0"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// RESTHandler handles REST API requests.
type RESTHandler struct {
	svc          Service
	logger       *zap.Logger
	historyLimit int
}

// NewRESTHandler creates a new RESTHandler. historyLimit is used when a
// history request does not name one.
func NewRESTHandler(svc Service, logger *zap.Logger, historyLimit int) *RESTHandler {
	return &RESTHandler{
		svc:          svc,
		logger:       logger,
		historyLimit: historyLimit,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	api.HandleFunc("/items", h.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/history", h.ListHistory).Methods(http.MethodGet)
	api.HandleFunc("/preview", h.Preview).Methods(http.MethodPost)
	api.HandleFunc("/finalize", h.Finalize).Methods(http.MethodPost)
	api.HandleFunc("/cache/clear", h.ClearCache).Methods(http.MethodPost)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.Warn("backing store not ready", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable,
			model.NewErrorResponse[ReadyResponse]("backing store unavailable"))
		return
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// ListItems handles GET /api/v1/items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.svc.Items(r.Context())))
}

// ListCategories handles GET /api/v1/categories requests.
func (h *RESTHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.svc.Categories(r.Context())))
}

// ListHistory handles GET /api/v1/history requests.
func (h *RESTHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.svc.History(r.Context(), limit)))
}

// AddItem handles POST /api/v1/items requests.
func (h *RESTHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req model.AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.svc.AddItem(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "add item")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// Preview handles POST /api/v1/preview requests.
func (h *RESTHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req model.ListRequest
	if !h.decode(w, r, &req) {
		return
	}

	items, err := h.svc.Preview(req.Items)
	if err != nil {
		h.handleServiceError(w, err, "preview")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(items))
}

// Finalize handles POST /api/v1/finalize requests.
func (h *RESTHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req model.ListRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.Finalize(r.Context(), req.Items, req.Amend)
	if err != nil {
		h.handleServiceError(w, err, "finalize")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(result))
}

// ClearCache handles POST /api/v1/cache/clear requests.
func (h *RESTHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearCache(r.Context())
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ClearCacheResponse{Status: "cleared"}))
}

// decode reads a JSON body into dst, answering 400 when it cannot.
func (h *RESTHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleServiceError maps service errors to HTTP responses.
func (h *RESTHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shoplist.ErrEmptyList):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, notifier.ErrNotConfigured):
		h.writeError(w, http.StatusServiceUnavailable, "messaging is not configured")
	case errors.Is(err, notifier.ErrDeliveryFailed):
		h.logger.Error("delivery failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "failed to send shopping list")
	default:
		h.logger.Error("service operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}
