package api

import (
	"encoding/json"
	"net/http"
)

type AgentReportRequest struct {
	Account string         `json:"account"`
	Payload map[string]any `json:"payload"`
}

type AgentAckRequest struct {
	Account string `json:"account"`
}

type SetCommandRequest struct {
	Account string `json:"account"`
	Command string `json:"command"`
}

// HandleAgentReport сохраняет последний статус аккаунта
func (h *Handler) HandleAgentReport(w http.ResponseWriter, r *http.Request) {
	var req AgentReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.mailbox.Report(req.Account, req.Payload); err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleAgentCommand выдает отложенную команду аккаунта, если она есть
func (h *Handler) HandleAgentCommand(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		h.respondError(w, http.StatusBadRequest, "account is required")
		return
	}

	command, ok := h.mailbox.Command(account)
	if !ok {
		h.respondJSON(w, http.StatusOK, map[string]any{"command": nil})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"command": command})
}

// HandleAgentAck подтверждает выполнение команды и очищает ящик
func (h *Handler) HandleAgentAck(w http.ResponseWriter, r *http.Request) {
	var req AgentAckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Account == "" {
		h.respondError(w, http.StatusBadRequest, "account is required")
		return
	}

	h.mailbox.AckCommand(req.Account)

	h.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleSetCommand ставит команду для аккаунта (админ)
func (h *Handler) HandleSetCommand(w http.ResponseWriter, r *http.Request) {
	var req SetCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.mailbox.SetCommand(req.Account, req.Command); err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondSuccess(w, "Command queued successfully", nil)
}

// HandleListReports возвращает последние отчеты всех аккаунтов (админ)
func (h *Handler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	h.respondSuccess(w, "", h.mailbox.Reports())
}
