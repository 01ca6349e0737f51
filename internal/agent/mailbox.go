package agent

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"copier_hub/internal/models"
	"copier_hub/internal/storage"
)

const agentDocument = "agent"

// mailboxDocument — формат ящика в хранилище
type mailboxDocument struct {
	Reports  map[string]models.AgentReport  `json:"reports"`
	Commands map[string]models.AgentCommand `json:"commands"`
}

// Mailbox — отчеты терминалов и отложенные команды, по одной на аккаунт.
// Новая команда администратора замещает предыдущую, ack очищает ящик.
type Mailbox struct {
	mu       sync.Mutex
	reports  map[string]models.AgentReport
	commands map[string]models.AgentCommand
	store    storage.DocumentStore
	logger   *slog.Logger
}

// New создает ящик и поднимает сохраненное состояние из хранилища
func New(store storage.DocumentStore, logger *slog.Logger) (*Mailbox, error) {
	m := &Mailbox{
		reports:  make(map[string]models.AgentReport),
		commands: make(map[string]models.AgentCommand),
		store:    store,
		logger:   logger,
	}

	var saved mailboxDocument

	found, err := store.Load(agentDocument, &saved)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent mailbox: %w", err)
	}

	if found {
		if saved.Reports != nil {
			m.reports = saved.Reports
		}

		if saved.Commands != nil {
			m.commands = saved.Commands
		}

		logger.Info("✅ Agent mailbox loaded",
			slog.Int("reports", len(m.reports)),
			slog.Int("commands", len(m.commands)))
	}

	return m, nil
}

// Report сохраняет последний статус аккаунта, замещая предыдущий
func (m *Mailbox) Report(account string, payload map[string]any) error {
	if account == "" {
		return fmt.Errorf("%w: account is required", models.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports[account] = models.AgentReport{
		Account:   account,
		Payload:   payload,
		UpdatedAt: time.Now().UnixMilli(),
	}
	m.persistLocked()

	return nil
}

// SetCommand ставит команду для аккаунта, замещая неподтвержденную
func (m *Mailbox) SetCommand(account, command string) error {
	if account == "" || command == "" {
		return fmt.Errorf("%w: account and command are required", models.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.commands[account] = models.AgentCommand{
		Account: account,
		Command: command,
		SetAt:   time.Now().UnixMilli(),
	}
	m.persistLocked()

	m.logger.Info("📬 Command queued",
		slog.String("account", account),
		slog.String("command", command))

	return nil
}

// Command выдает отложенную команду и помечает момент приема агентом
func (m *Mailbox) Command(account string) (models.AgentCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	command, ok := m.commands[account]
	if !ok {
		return models.AgentCommand{}, false
	}

	if command.AcceptedAt == 0 {
		command.AcceptedAt = time.Now().UnixMilli()
		m.commands[account] = command
		m.persistLocked()
	}

	return command, true
}

// AckCommand подтверждает выполнение и очищает ящик аккаунта.
// Подтверждение пустого ящика — no-op.
func (m *Mailbox) AckCommand(account string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.commands[account]; !ok {
		return
	}

	delete(m.commands, account)
	m.persistLocked()

	m.logger.Info("✅ Command acked", slog.String("account", account))
}

// Reports возвращает последние отчеты всех аккаунтов
func (m *Mailbox) Reports() []models.AgentReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]models.AgentReport, 0, len(m.reports))
	for _, report := range m.reports {
		list = append(list, report)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Account < list[j].Account
	})

	return list
}

// persistLocked сохраняет ящик; ошибка записи не фатальна
func (m *Mailbox) persistLocked() {
	doc := mailboxDocument{
		Reports:  m.reports,
		Commands: m.commands,
	}

	if err := m.store.Save(agentDocument, doc); err != nil {
		m.logger.Warn("⚠️ Failed to persist agent mailbox, keeping in-memory state", slog.Any("error", err))
	}
}
