package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"copier_hub/internal/models"
	"copier_hub/internal/storage"

	"github.com/google/uuid"
)

const clientsDocument = "clients"

const dayMs = int64(24 * time.Hour / time.Millisecond)

// Коды длительности лицензии в днях
var durationDays = map[string]int64{
	"M1": 31,
	"M3": 93,
	"M6": 186,
	"Y1": 366,
}

// Registry владеет множеством клиентов и их лицензиями
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*models.Client // clientId -> Client
	store   storage.DocumentStore
	logger  *slog.Logger
}

// New создает реестр и поднимает сохраненных клиентов из хранилища
func New(store storage.DocumentStore, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		clients: make(map[string]*models.Client),
		store:   store,
		logger:  logger,
	}

	var saved []models.Client

	found, err := store.Load(clientsDocument, &saved)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}

	if found {
		for i := range saved {
			c := saved[i]
			r.clients[c.ClientID] = &c
		}

		logger.Info("✅ Clients loaded", slog.Int("count", len(saved)))
	}

	return r, nil
}

// Create создает нового клиента со свежим clientId и apiKey
func (r *Registry) Create(fullName, groupID, duration string) (models.Client, error) {
	if fullName == "" || groupID == "" {
		return models.Client{}, fmt.Errorf("%w: fullName and groupId are required", models.ErrInvalidInput)
	}

	apiKey, err := newAPIKey()
	if err != nil {
		return models.Client{}, err
	}

	now := time.Now().UnixMilli()
	client := &models.Client{
		ClientID:  uuid.NewString(),
		FullName:  fullName,
		GroupID:   groupID,
		APIKey:    apiKey,
		Enabled:   true,
		CreatedAt: now,
		ExpiresAt: now + r.durationToMs(duration),
	}

	r.mu.Lock()
	r.clients[client.ClientID] = client
	r.persistLocked()
	r.mu.Unlock()

	r.logger.Info("✅ Client created",
		slog.String("client_id", client.ClientID),
		slog.String("group", groupID))

	return *client, nil
}

// SetEnabled включает или выключает клиента
func (r *Registry) SetEnabled(clientID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientID]
	if !ok {
		return fmt.Errorf("%w: client %s", models.ErrNotFound, clientID)
	}

	client.Enabled = enabled
	r.persistLocked()

	r.logger.Info("✅ Client enabled status updated",
		slog.String("client_id", clientID),
		slog.Bool("enabled", enabled))

	return nil
}

// Extend продлевает лицензию: новый срок отсчитывается от max(now, expiresAt),
// так что продление всегда добавляет будущую валидность, даже если лицензия истекла
func (r *Registry) Extend(clientID, duration string) (models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientID]
	if !ok {
		return models.Client{}, fmt.Errorf("%w: client %s", models.ErrNotFound, clientID)
	}

	now := time.Now().UnixMilli()
	base := client.ExpiresAt
	if now > base {
		base = now
	}

	client.ExpiresAt = base + r.durationToMs(duration)
	r.persistLocked()

	r.logger.Info("✅ Client extended",
		slog.String("client_id", clientID),
		slog.String("duration", duration),
		slog.Int64("expires_at", client.ExpiresAt))

	return *client, nil
}

// ResetBind сбрасывает привязку, позволяя привязаться новому slave
func (r *Registry) ResetBind(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientID]
	if !ok {
		return fmt.Errorf("%w: client %s", models.ErrNotFound, clientID)
	}

	client.BoundSlaveID = ""
	r.persistLocked()

	r.logger.Info("🔓 Client binding reset", slog.String("client_id", clientID))

	return nil
}

// Delete безвозвратно удаляет клиента
func (r *Registry) Delete(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[clientID]; !ok {
		return fmt.Errorf("%w: client %s", models.ErrNotFound, clientID)
	}

	delete(r.clients, clientID)
	r.persistLocked()

	r.logger.Info("🗑️ Client deleted", slog.String("client_id", clientID))

	return nil
}

// Bind привязывает клиента к slaveID по принципу first-seen-wins.
// Гонка двух первых привязок сериализуется мьютексом: ровно один победитель,
// проигравший получает ErrForbidden.
func (r *Registry) Bind(clientID, slaveID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientID]
	if !ok {
		return "", fmt.Errorf("%w: client %s", models.ErrNotFound, clientID)
	}

	if client.BoundSlaveID == "" {
		client.BoundSlaveID = slaveID
		r.persistLocked()

		r.logger.Info("🔗 Slave bound",
			slog.String("client_id", clientID),
			slog.String("slave_id", slaveID))

		return slaveID, nil
	}

	if client.BoundSlaveID != slaveID {
		return "", fmt.Errorf("%w: client is bound to another slave", models.ErrForbidden)
	}

	return client.BoundSlaveID, nil
}

// FindByAPIKey ищет клиента по точному совпадению API ключа
func (r *Registry) FindByAPIKey(key string) (models.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, client := range r.clients {
		if client.APIKey == key {
			return *client, true
		}
	}

	return models.Client{}, false
}

// FindByID ищет клиента по clientId
func (r *Registry) FindByID(clientID string) (models.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[clientID]
	if !ok {
		return models.Client{}, false
	}

	return *client, true
}

// List возвращает всех клиентов в порядке создания
func (r *Registry) List() []models.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked()
}

// durationToMs переводит код длительности в миллисекунды.
// Неизвестный код трактуется как M1.
func (r *Registry) durationToMs(code string) int64 {
	days, ok := durationDays[code]
	if !ok {
		r.logger.Warn("⚠️ Unknown duration code, using M1", slog.String("code", code))

		days = durationDays["M1"]
	}

	return days * dayMs
}

func (r *Registry) snapshotLocked() []models.Client {
	list := make([]models.Client, 0, len(r.clients))
	for _, client := range r.clients {
		list = append(list, *client)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt < list[j].CreatedAt
		}

		return list[i].ClientID < list[j].ClientID
	})

	return list
}

// persistLocked сохраняет реестр; ошибка записи не фатальна,
// состояние в памяти остается действующим
func (r *Registry) persistLocked() {
	if err := r.store.Save(clientsDocument, r.snapshotLocked()); err != nil {
		r.logger.Warn("⚠️ Failed to persist clients, keeping in-memory state", slog.Any("error", err))
	}
}

// newAPIKey генерирует 256-битный ключ в hex
func newAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
