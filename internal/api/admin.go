package api

import (
	"encoding/json"
	"net/http"
)

type AddClientRequest struct {
	FullName string `json:"fullName"`
	GroupID  string `json:"groupId"`
	Duration string `json:"duration"` // M1, M3, M6, Y1
}

type DisableClientRequest struct {
	ClientID string `json:"clientId"`
	Disabled bool   `json:"disabled"`
}

type ExtendClientRequest struct {
	ClientID string `json:"clientId"`
	Duration string `json:"duration"`
}

type ClientIDRequest struct {
	ClientID string `json:"clientId"`
}

// HandleListClients возвращает всех клиентов
func (h *Handler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	h.respondSuccess(w, "", h.registry.List())
}

// HandleAddClient создает нового клиента и возвращает его вместе с apiKey
func (h *Handler) HandleAddClient(w http.ResponseWriter, r *http.Request) {
	var req AddClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	client, err := h.registry.Create(req.FullName, req.GroupID, req.Duration)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	h.notifier.ClientCreated(client)

	h.respondSuccess(w, "Client created successfully", client)
}

// HandleDisableClient включает/выключает клиента
func (h *Handler) HandleDisableClient(w http.ResponseWriter, r *http.Request) {
	var req DisableClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.registry.SetEnabled(req.ClientID, !req.Disabled); err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondSuccess(w, "Client status updated successfully", nil)
}

// HandleExtendClient продлевает лицензию клиента
func (h *Handler) HandleExtendClient(w http.ResponseWriter, r *http.Request) {
	var req ExtendClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	client, err := h.registry.Extend(req.ClientID, req.Duration)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondSuccess(w, "Client extended successfully", client)
}

// HandleResetBind сбрасывает привязку slave
func (h *Handler) HandleResetBind(w http.ResponseWriter, r *http.Request) {
	var req ClientIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.registry.ResetBind(req.ClientID); err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondSuccess(w, "Binding reset successfully", nil)
}

// HandleDeleteClient безвозвратно удаляет клиента
func (h *Handler) HandleDeleteClient(w http.ResponseWriter, r *http.Request) {
	var req ClientIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.registry.Delete(req.ClientID); err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondSuccess(w, "Client deleted successfully", nil)
}

// HandleListSlaves возвращает курсоры всех slave для мониторинга
func (h *Handler) HandleListSlaves(w http.ResponseWriter, r *http.Request) {
	h.respondSuccess(w, "", h.slaves.List())
}
