package api

import (
	"log/slog"
	"net/http"
	"sync"

	"copier_hub/internal/models"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub раздает свежие события по websocket подключениям, сгруппированным
// по группе сигналов. Доставка best-effort: опрос с ack остается
// источником истины, медленное соединение просто закрывается.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]string // conn -> group
	logger *slog.Logger
}

// NewHub создает пустой hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]string),
		logger: logger,
	}
}

// Broadcast шлет событие всем подключениям его группы
func (hub *Hub) Broadcast(event models.Event) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for conn, group := range hub.conns {
		if group != event.Group {
			continue
		}

		if err := conn.WriteJSON(event); err != nil {
			hub.logger.Warn("⚠️ Dropping slow stream connection", slog.Any("error", err))
			conn.Close()
			delete(hub.conns, conn)
		}
	}
}

func (hub *Hub) add(conn *websocket.Conn, group string) {
	hub.mu.Lock()
	hub.conns[conn] = group
	hub.mu.Unlock()
}

func (hub *Hub) remove(conn *websocket.Conn) {
	hub.mu.Lock()
	delete(hub.conns, conn)
	hub.mu.Unlock()
}

// HandleStream держит websocket и пушит события группы клиента по мере
// их появления. Гейт и привязка те же, что у опроса; курсор двигает
// только явный ack.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Браузерные клиенты не могут выставить заголовок при upgrade
	apiKey := r.Header.Get(HeaderAPIKey)
	if apiKey == "" {
		apiKey = query.Get("key")
	}

	client, err := h.gate.RequireClient(apiKey, query.Get("group"))
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	slaveID := query.Get("slaveId")
	if slaveID == "" {
		h.respondError(w, http.StatusBadRequest, "slaveId is required")
		return
	}

	if _, err := h.registry.Bind(client.ClientID, slaveID); err != nil {
		h.respondAppError(w, err)
		return
	}

	h.slaves.Touch(client.GroupID, slaveID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("⚠️ Websocket upgrade failed", slog.Any("error", err))
		return
	}

	h.hub.add(conn, client.GroupID)

	h.logger.Info("🔌 Stream connected",
		slog.String("group", client.GroupID),
		slog.String("slave_id", slaveID))

	defer func() {
		h.hub.remove(conn)
		conn.Close()

		h.logger.Info("🔌 Stream disconnected",
			slog.String("group", client.GroupID),
			slog.String("slave_id", slaveID))
	}()

	// Читаем до закрытия, входящие сообщения не используются
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
