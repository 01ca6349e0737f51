package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"copier_hub/internal/access"
	"copier_hub/internal/agent"
	"copier_hub/internal/copier"
	"copier_hub/internal/eventlog"
	"copier_hub/internal/models"
	"copier_hub/internal/notify"
	"copier_hub/internal/registry"
	"copier_hub/internal/slaves"
)

// Заголовки с shared-secret ключами
const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderAdminKey  = "X-Admin-Key"
	HeaderMasterKey = "X-Master-Key"
	HeaderAgentKey  = "X-Agent-Key"
)

// Handler обрабатывает API запросы
type Handler struct {
	registry *registry.Registry
	events   *eventlog.Log
	slaves   *slaves.Directory
	copier   *copier.Service
	mailbox  *agent.Mailbox
	gate     *access.Gate
	notifier *notify.Notifier
	hub      *Hub
	logger   *slog.Logger
}

func New(
	reg *registry.Registry,
	events *eventlog.Log,
	directory *slaves.Directory,
	copierSvc *copier.Service,
	mailbox *agent.Mailbox,
	gate *access.Gate,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		registry: reg,
		events:   events,
		slaves:   directory,
		copier:   copierSvc,
		mailbox:  mailbox,
		gate:     gate,
		notifier: notifier,
		hub:      NewHub(logger),
		logger:   logger,
	}
}

// Helper функции для JSON ответов

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, ErrorResponse{Error: message})
}

func (h *Handler) respondSuccess(w http.ResponseWriter, message string, data any) {
	h.respondJSON(w, http.StatusOK, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// respondAppError отображает категорию ошибки в HTTP статус
func (h *Handler) respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		h.respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrForbidden):
		h.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("Internal error", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}
