package copier

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"copier_hub/internal/access"
	"copier_hub/internal/eventlog"
	"copier_hub/internal/models"
	"copier_hub/internal/notify"
	"copier_hub/internal/registry"
	"copier_hub/internal/slaves"
	"copier_hub/internal/storage"

	"github.com/stretchr/testify/require"
)

const masterKey = "master-secret"

type fixture struct {
	registry *registry.Registry
	events   *eventlog.Log
	slaves   *slaves.Directory
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.NewFile(t.TempDir(), logger)
	require.NoError(t, err)

	reg, err := registry.New(store, logger)
	require.NoError(t, err)

	events, err := eventlog.New(store, logger)
	require.NoError(t, err)

	directory, err := slaves.New(store, logger)
	require.NoError(t, err)

	gate := access.New("", "", "", masterKey, reg, logger)

	var notifier *notify.Notifier // уведомления выключены

	return &fixture{
		registry: reg,
		events:   events,
		slaves:   directory,
		service:  New(reg, events, directory, gate, notifier, logger),
	}
}

func openEvent(ticket int64) models.Event {
	return models.Event{
		Group:        "G1",
		Type:         models.EventOpen,
		MasterTicket: ticket,
		Symbol:       "EURUSD",
		Lots:         0.1,
		Price:        1.0825,
	}
}

func TestPushRequiresMasterKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Push("wrong", "G1", models.EventOpen, openEvent(101))
	require.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = f.service.Push("", "G1", models.EventOpen, openEvent(101))
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestPushPollAckScenario(t *testing.T) {
	f := newFixture(t)

	client, err := f.registry.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	event, err := f.service.Push(masterKey, "G1", models.EventOpen, openEvent(101))
	require.NoError(t, err)
	require.Equal(t, int64(1), event.ID)

	events, err := f.service.PollEvents(client.APIKey, "G1", "S1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, int64(1), events[0].ID)
	require.Equal(t, int64(101), events[0].MasterTicket)

	require.NoError(t, f.service.Ack(client.APIKey, "G1", "S1", 1))

	cursor, ok := f.slaves.Get("G1", "S1")
	require.True(t, ok)
	require.Equal(t, int64(1), cursor.LastAckID)

	events, err = f.service.PollEvents(client.APIKey, "G1", "S1", 1, 10)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestPollBindsFirstSeen(t *testing.T) {
	f := newFixture(t)

	client, err := f.registry.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	_, err = f.service.PollEvents(client.APIKey, "G1", "S1", 0, 10)
	require.NoError(t, err)

	found, _ := f.registry.FindByID(client.ClientID)
	require.Equal(t, "S1", found.BoundSlaveID)

	// Другой slave после привязки — отказ
	_, err = f.service.PollEvents(client.APIKey, "G1", "S2", 0, 10)
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestSecondSlaveRejectedUntilResetBind(t *testing.T) {
	f := newFixture(t)

	client, err := f.registry.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	bound, err := f.service.RegisterSlave(client.APIKey, "G1", "S1")
	require.NoError(t, err)
	require.Equal(t, "S1", bound)

	// Повторная регистрация той же пары идемпотентна
	bound, err = f.service.RegisterSlave(client.APIKey, "G1", "S1")
	require.NoError(t, err)
	require.Equal(t, "S1", bound)

	_, err = f.service.RegisterSlave(client.APIKey, "G1", "S2")
	require.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, f.registry.ResetBind(client.ClientID))

	bound, err = f.service.RegisterSlave(client.APIKey, "G1", "S2")
	require.NoError(t, err)
	require.Equal(t, "S2", bound)

	// Прежний победитель теперь отвергается
	_, err = f.service.RegisterSlave(client.APIKey, "G1", "S1")
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestConcurrentRegisterSingleWinner(t *testing.T) {
	f := newFixture(t)

	client, err := f.registry.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)

	for i, slaveID := range []string{"S1", "S2"} {
		wg.Add(1)

		go func(i int, slaveID string) {
			defer wg.Done()

			_, errs[i] = f.service.RegisterSlave(client.APIKey, "G1", slaveID)
		}(i, slaveID)
	}

	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, models.ErrForbidden)
		}
	}

	require.Equal(t, 1, winners)
}

func TestAckDoesNotBind(t *testing.T) {
	f := newFixture(t)

	client, err := f.registry.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	// Ack непривязанного клиента проходит, но привязку не создает
	require.NoError(t, f.service.Ack(client.APIKey, "G1", "S9", 1))

	found, _ := f.registry.FindByID(client.ClientID)
	require.Empty(t, found.BoundSlaveID)

	// Привязка все еще свободна для register
	bound, err := f.service.RegisterSlave(client.APIKey, "G1", "S1")
	require.NoError(t, err)
	require.Equal(t, "S1", bound)

	// После привязки чужой ack отвергается
	err = f.service.Ack(client.APIKey, "G1", "S9", 2)
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestAckIsMonotonicThroughService(t *testing.T) {
	f := newFixture(t)

	client, err := f.registry.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	_, err = f.service.RegisterSlave(client.APIKey, "G1", "S1")
	require.NoError(t, err)

	require.NoError(t, f.service.Ack(client.APIKey, "G1", "S1", 5))
	require.NoError(t, f.service.Ack(client.APIKey, "G1", "S1", 3))

	cursor, _ := f.slaves.Get("G1", "S1")
	require.Equal(t, int64(5), cursor.LastAckID)
}

func TestDisabledClientRejectedEverywhere(t *testing.T) {
	f := newFixture(t)

	client, err := f.registry.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	require.NoError(t, f.registry.SetEnabled(client.ClientID, false))

	_, err = f.service.RegisterSlave(client.APIKey, "G1", "S1")
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.service.PollEvents(client.APIKey, "G1", "S1", 0, 10)
	require.ErrorIs(t, err, models.ErrForbidden)

	require.ErrorIs(t, f.service.Ack(client.APIKey, "G1", "S1", 1), models.ErrForbidden)
}

func TestGroupIsolation(t *testing.T) {
	f := newFixture(t)

	clientG1, err := f.registry.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	clientG2, err := f.registry.Create("Globex", "G2", "M1")
	require.NoError(t, err)

	_, err = f.service.Push(masterKey, "G1", models.EventOpen, openEvent(101))
	require.NoError(t, err)

	g2Event := openEvent(102)
	g2Event.Group = "G2"

	_, err = f.service.Push(masterKey, "G2", models.EventOpen, g2Event)
	require.NoError(t, err)

	// Клиент G2 не видит событий G1 и не может их запросить
	_, err = f.service.PollEvents(clientG2.APIKey, "G1", "S2", 0, 10)
	require.ErrorIs(t, err, models.ErrForbidden)

	events, err := f.service.PollEvents(clientG2.APIKey, "G2", "S2", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, int64(2), events[0].ID)

	events, err = f.service.PollEvents(clientG1.APIKey, "G1", "S1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, int64(1), events[0].ID)
}
