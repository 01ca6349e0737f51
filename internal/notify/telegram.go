package notify

import (
	"fmt"
	"log/slog"

	"copier_hub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier шлет операционные уведомления в Telegram.
// Nil-notifier безопасен: все методы становятся no-op.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// New создает уведомитель. Без токена или chat id возвращает nil —
// уведомления выключены.
func New(token string, chatID int64, logger *slog.Logger) *Notifier {
	if token == "" || chatID == 0 {
		logger.Info("📴 Telegram notifications disabled")
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Warn("⚠️ Failed to connect Telegram bot, notifications disabled", slog.Any("error", err))
		return nil
	}

	logger.Info("✅ Telegram notifications enabled", slog.String("bot", bot.Self.UserName))

	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}
}

// ClientCreated уведомляет о создании клиента
func (n *Notifier) ClientCreated(client models.Client) {
	n.send(fmt.Sprintf("🆕 Client created: %s (group %s)", client.FullName, client.GroupID))
}

// SlaveBound уведомляет о первой привязке slave
func (n *Notifier) SlaveBound(client models.Client, slaveID string) {
	n.send(fmt.Sprintf("🔗 Slave %s bound to client %s", slaveID, client.FullName))
}

// BindRejected уведомляет о попытке привязки второго slave
func (n *Notifier) BindRejected(client models.Client, slaveID string) {
	n.send(fmt.Sprintf("🚫 Slave %s rejected: client %s is already bound to %s",
		slaveID, client.FullName, client.BoundSlaveID))
}

func (n *Notifier) send(text string) {
	if n == nil {
		return
	}

	go func() {
		if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
			n.logger.Warn("⚠️ Failed to send Telegram notification", slog.Any("error", err))
		}
	}()
}
