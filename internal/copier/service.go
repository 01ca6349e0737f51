package copier

import (
	"errors"
	"fmt"
	"log/slog"

	"copier_hub/internal/access"
	"copier_hub/internal/eventlog"
	"copier_hub/internal/models"
	"copier_hub/internal/notify"
	"copier_hub/internal/registry"
	"copier_hub/internal/slaves"
)

// Service реализует протокол раздачи событий: push от мастера,
// регистрация/опрос/подтверждение от slave с контролем привязки
type Service struct {
	registry *registry.Registry
	events   *eventlog.Log
	slaves   *slaves.Directory
	gate     *access.Gate
	notifier *notify.Notifier
	logger   *slog.Logger
}

// New создает сервис раздачи
func New(
	reg *registry.Registry,
	events *eventlog.Log,
	directory *slaves.Directory,
	gate *access.Gate,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry: reg,
		events:   events,
		slaves:   directory,
		gate:     gate,
		notifier: notifier,
		logger:   logger,
	}
}

// Push принимает событие от мастера и добавляет его в журнал
func (s *Service) Push(masterKey, group, eventType string, fields models.Event) (models.Event, error) {
	if !s.gate.MasterAllowed(masterKey) {
		return models.Event{}, fmt.Errorf("%w: invalid master key", models.ErrUnauthorized)
	}

	return s.events.Append(group, eventType, fields)
}

// RegisterSlave привязывает slave к клиенту (first-seen-wins) и
// отмечает его в каталоге. Повторная регистрация той же пары идемпотентна.
func (s *Service) RegisterSlave(apiKey, group, slaveID string) (string, error) {
	client, err := s.gate.RequireClient(apiKey, group)
	if err != nil {
		return "", err
	}

	if slaveID == "" {
		return "", fmt.Errorf("%w: slaveId is required", models.ErrInvalidInput)
	}

	bound, err := s.bind(client, slaveID)
	if err != nil {
		return "", err
	}

	s.slaves.Touch(client.GroupID, slaveID)

	return bound, nil
}

// PollEvents возвращает события группы клиента после since.
// Курсор при этом не двигается: продвижение — только через Ack.
func (s *Service) PollEvents(apiKey, group, slaveID string, since int64, limit int) ([]models.Event, error) {
	client, err := s.gate.RequireClient(apiKey, group)
	if err != nil {
		return nil, err
	}

	if slaveID == "" {
		return nil, fmt.Errorf("%w: slaveId is required", models.ErrInvalidInput)
	}

	if _, err := s.bind(client, slaveID); err != nil {
		return nil, err
	}

	s.slaves.Touch(client.GroupID, slaveID)

	return s.events.ListSince(client.GroupID, since, limit), nil
}

// Ack подтверждает обработку события. Привязка проверяется только для уже
// привязанного клиента: первый ack непривязанного клиента привязку не создает.
func (s *Service) Ack(apiKey, group, slaveID string, eventID int64) error {
	client, err := s.gate.RequireClient(apiKey, group)
	if err != nil {
		return err
	}

	if slaveID == "" {
		return fmt.Errorf("%w: slaveId is required", models.ErrInvalidInput)
	}

	if client.BoundSlaveID != "" && client.BoundSlaveID != slaveID {
		return fmt.Errorf("%w: client is bound to another slave", models.ErrForbidden)
	}

	s.slaves.Ack(client.GroupID, slaveID, eventID)

	return nil
}

// bind применяет first-seen-wins привязку и шлет уведомления оператору
func (s *Service) bind(client models.Client, slaveID string) (string, error) {
	bound, err := s.registry.Bind(client.ClientID, slaveID)
	if err != nil {
		if errors.Is(err, models.ErrForbidden) {
			s.notifier.BindRejected(client, slaveID)
		}

		return "", err
	}

	if client.BoundSlaveID == "" {
		s.notifier.SlaveBound(client, slaveID)
	}

	return bound, nil
}
