package api

import (
	"net/http"

	"copier_hub/internal/middleware"

	"github.com/gorilla/mux"
)

// SetupRouter настраивает роутинг для API
func (h *Handler) SetupRouter(webDir string) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.Logging(h.logger))

	r.HandleFunc("/health", h.HandleHealth).Methods("GET")

	// Протокол раздачи событий
	r.HandleFunc("/copier/push", h.HandlePush).Methods("POST", "OPTIONS")
	r.HandleFunc("/copier/registerSlave", h.HandleRegisterSlave).Methods("POST", "OPTIONS")
	r.HandleFunc("/copier/events", h.HandlePollEvents).Methods("GET")
	r.HandleFunc("/copier/ack", h.HandleAck).Methods("POST", "OPTIONS")
	r.HandleFunc("/copier/stream", h.HandleStream).Methods("GET")

	// Агентский ящик (ключ агента)
	agentAPI := r.PathPrefix("/agent").Subrouter()
	agentAPI.Use(h.agentAuth)
	agentAPI.HandleFunc("/report", h.HandleAgentReport).Methods("POST", "OPTIONS")
	agentAPI.HandleFunc("/command", h.HandleAgentCommand).Methods("GET")
	agentAPI.HandleFunc("/ack", h.HandleAgentAck).Methods("POST", "OPTIONS")

	// Администрирование (ключ администратора)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(h.adminAuth)
	admin.HandleFunc("/clients", h.HandleListClients).Methods("GET")
	admin.HandleFunc("/clients/add", h.HandleAddClient).Methods("POST")
	admin.HandleFunc("/clients/disable", h.HandleDisableClient).Methods("POST")
	admin.HandleFunc("/clients/extend", h.HandleExtendClient).Methods("POST")
	admin.HandleFunc("/clients/resetBind", h.HandleResetBind).Methods("POST")
	admin.HandleFunc("/clients/delete", h.HandleDeleteClient).Methods("POST")
	admin.HandleFunc("/slaves", h.HandleListSlaves).Methods("GET")
	admin.HandleFunc("/command", h.HandleSetCommand).Methods("POST")
	admin.HandleFunc("/reports", h.HandleListReports).Methods("GET")

	// Статические файлы админ-панели (должны быть в конце)
	if webDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(webDir)))
	}

	return r
}

// adminAuth пропускает запросы только с действующим ключом администратора
func (h *Handler) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.gate.AdminAllowed(r.Header.Get(HeaderAdminKey)) {
			h.respondError(w, http.StatusUnauthorized, "invalid admin key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// agentAuth пропускает запросы только с действующим ключом агента
func (h *Handler) agentAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			next.ServeHTTP(w, r)
			return
		}

		if !h.gate.AgentAllowed(r.Header.Get(HeaderAgentKey)) {
			h.respondError(w, http.StatusUnauthorized, "invalid agent key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HandleHealth возвращает статус здоровья сервиса
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondSuccess(w, "OK", map[string]any{
		"status":  "healthy",
		"events":  h.events.Len(),
		"last_id": h.events.LastID(),
	})
}
