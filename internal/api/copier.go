package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"copier_hub/internal/models"
)

type RegisterSlaveRequest struct {
	Group   string `json:"group"`
	SlaveID string `json:"slaveId"`
}

type AckRequest struct {
	Group   string `json:"group"`
	SlaveID string `json:"slaveId"`
	EventID int64  `json:"event_id"`
	Status  string `json:"status"`
}

// HandlePush принимает событие от мастера и возвращает присвоенный id
func (h *Handler) HandlePush(w http.ResponseWriter, r *http.Request) {
	var req models.Event
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.copier.Push(r.Header.Get(HeaderMasterKey), req.Group, req.Type, req)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	h.hub.Broadcast(event)

	h.respondJSON(w, http.StatusOK, map[string]int64{"id": event.ID})
}

// HandleRegisterSlave привязывает slave к клиенту
func (h *Handler) HandleRegisterSlave(w http.ResponseWriter, r *http.Request) {
	var req RegisterSlaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bound, err := h.copier.RegisterSlave(r.Header.Get(HeaderAPIKey), req.Group, req.SlaveID)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"boundSlaveId": bound})
}

// HandlePollEvents возвращает события группы клиента после since
func (h *Handler) HandlePollEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	since, _ := strconv.ParseInt(query.Get("since"), 10, 64)

	limit, err := strconv.Atoi(query.Get("limit"))
	if err != nil {
		limit = 100
	}

	events, err := h.copier.PollEvents(
		r.Header.Get(HeaderAPIKey),
		query.Get("group"),
		query.Get("slaveId"),
		since,
		limit,
	)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	if events == nil {
		events = []models.Event{}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

// HandleAck подтверждает обработку события slave'ом
func (h *Handler) HandleAck(w http.ResponseWriter, r *http.Request) {
	var req AckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.copier.Ack(r.Header.Get(HeaderAPIKey), req.Group, req.SlaveID, req.EventID)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	if req.Status != "" && req.Status != "ok" {
		h.logger.Warn("⚠️ Slave reported failed event",
			"slave_id", req.SlaveID,
			"event_id", req.EventID,
			"status", req.Status)
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
