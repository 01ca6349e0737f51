package models

// Типы событий, которые принимает журнал
const (
	EventOpen  = "OPEN"
	EventClose = "CLOSE"
)

// Client представляет клиента (тенанта) с лицензией на получение сигналов
type Client struct {
	ClientID     string `json:"clientId"`
	FullName     string `json:"fullName"`
	GroupID      string `json:"groupId"`      // Группа сигналов, которую видит клиент
	APIKey       string `json:"apiKey"`       // Bearer-секрет, выдается при создании
	Enabled      bool   `json:"enabled"`      // Управляется администратором
	CreatedAt    int64  `json:"createdAt"`    // epoch ms
	ExpiresAt    int64  `json:"expiresAt"`    // epoch ms, продлевается только явным extend
	BoundSlaveID string `json:"boundSlaveId"` // Пусто до первой привязки
}

// IsActive проверяет, действует ли лицензия клиента на момент nowMs
func (c Client) IsActive(nowMs int64) bool {
	return c.Enabled && c.ExpiresAt > nowMs
}

// Event — торговое событие в append-only журнале.
// Поля сделки прозрачны для сервера, проверяются только master_ticket и symbol.
type Event struct {
	ID           int64   `json:"id"`
	Group        string  `json:"group"`
	Type         string  `json:"type"` // OPEN или CLOSE
	Ts           int64   `json:"ts"`
	MasterTicket int64   `json:"master_ticket"`
	OpenTime     int64   `json:"open_time"`
	Symbol       string  `json:"symbol"`
	Cmd          int     `json:"cmd"`
	Lots         float64 `json:"lots"`
	Price        float64 `json:"price"`
	SL           float64 `json:"sl"`
	TP           float64 `json:"tp"`
	Magic        int64   `json:"magic"`
}

// SlaveCursor — курсор доставки для пары (group, slaveId)
type SlaveCursor struct {
	Group      string `json:"group"`
	SlaveID    string `json:"slaveId"`
	LastAckID  int64  `json:"lastAckId"`  // Монотонно неубывающий
	LastSeenAt int64  `json:"lastSeenAt"` // epoch ms последнего обращения
}

// AgentReport — последний статус, присланный терминалом агента
type AgentReport struct {
	Account   string         `json:"account"`
	Payload   map[string]any `json:"payload"`
	UpdatedAt int64          `json:"updatedAt"`
}

// AgentCommand — отложенная команда для аккаунта (одна на аккаунт)
type AgentCommand struct {
	Account    string `json:"account"`
	Command    string `json:"command"`
	SetAt      int64  `json:"setAt"`
	AcceptedAt int64  `json:"acceptedAt"` // 0 пока агент не забрал команду
}
