package access

import (
	"fmt"
	"log/slog"
	"time"

	"copier_hub/internal/models"
	"copier_hub/internal/registry"

	"golang.org/x/crypto/bcrypt"
)

// Gate проверяет три независимых shared-secret ключа и составное
// условие доступа клиента
type Gate struct {
	agentKey     string
	adminKey     string
	adminKeyHash string // bcrypt-хеш, имеет приоритет над adminKey
	masterKey    string
	registry     *registry.Registry
	logger       *slog.Logger
}

// New создает гейт доступа
func New(agentKey, adminKey, adminKeyHash, masterKey string, reg *registry.Registry, logger *slog.Logger) *Gate {
	return &Gate{
		agentKey:     agentKey,
		adminKey:     adminKey,
		adminKeyHash: adminKeyHash,
		masterKey:    masterKey,
		registry:     reg,
		logger:       logger,
	}
}

// AgentAllowed проверяет ключ агента.
// Пустой сконфигурированный ключ означает открытый агентский API.
func (g *Gate) AgentAllowed(key string) bool {
	if g.agentKey == "" {
		return true
	}

	return key == g.agentKey
}

// AdminAllowed проверяет ключ администратора.
// Без сконфигурированного ключа (или хеша) админ-запросы всегда отклоняются.
func (g *Gate) AdminAllowed(key string) bool {
	if g.adminKeyHash != "" {
		return key != "" && bcrypt.CompareHashAndPassword([]byte(g.adminKeyHash), []byte(key)) == nil
	}

	if g.adminKey == "" {
		return false
	}

	return key == g.adminKey
}

// MasterAllowed проверяет ключ мастера.
// Без сконфигурированного ключа push всегда отклоняется.
func (g *Gate) MasterAllowed(key string) bool {
	return g.masterKey != "" && key == g.masterKey
}

// RequireClient — составная проверка для всех slave-эндпоинтов:
// ключ присутствует → клиент найден → лицензия активна → группа совпадает.
func (g *Gate) RequireClient(apiKey, group string) (models.Client, error) {
	if apiKey == "" {
		return models.Client{}, fmt.Errorf("%w: api key is required", models.ErrUnauthorized)
	}

	client, ok := g.registry.FindByAPIKey(apiKey)
	if !ok {
		return models.Client{}, fmt.Errorf("%w: unknown api key", models.ErrUnauthorized)
	}

	if !client.IsActive(time.Now().UnixMilli()) {
		g.logger.Warn("🚫 Inactive client rejected",
			slog.String("client_id", client.ClientID),
			slog.Bool("enabled", client.Enabled))

		return models.Client{}, fmt.Errorf("%w: client is disabled or expired", models.ErrForbidden)
	}

	if group != "" && group != client.GroupID {
		return models.Client{}, fmt.Errorf("%w: group mismatch", models.ErrForbidden)
	}

	return client, nil
}
