// Package telegram forwards help-request broadcasts to a Telegram chat,
// so a team can be paged even when nobody has the board open.
package telegram

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"whereabouts/backend/internal/models"
)

// sender is the slice of the bot API the notifier uses; a test double
// stands in for the real bot.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier is a hub subscriber that turns help_request events into
// Telegram messages. All other event types are drained and ignored.
type Notifier struct {
	id     string
	bot    sender
	chatID int64
	send   chan models.Event
	logger *zap.Logger
}

// NewNotifier authorizes the bot and returns a notifier ready to be
// registered with the hub.
func NewNotifier(token string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram authorization failed: %w", err)
	}
	bot.Debug = false
	logger.Info("telegram notifier authorized", zap.String("account", bot.Self.UserName))

	return newNotifier(bot, chatID, logger), nil
}

func newNotifier(bot sender, chatID int64, logger *zap.Logger) *Notifier {
	return &Notifier{
		id:     uuid.New().String(),
		bot:    bot,
		chatID: chatID,
		send:   make(chan models.Event, 64),
		logger: logger,
	}
}

func (n *Notifier) GetID() string                       { return n.id }
func (n *Notifier) GetSendChannel() chan<- models.Event { return n.send }

// Run drains the event channel on its own goroutine.
func (n *Notifier) Run() {
	go func() {
		for ev := range n.send {
			if ev.Type != models.EventHelpRequest {
				continue
			}
			n.notify(ev)
		}
	}()
}

func (n *Notifier) Close() {
	close(n.send)
}

func (n *Notifier) notify(ev models.Event) {
	var req models.HelpRequestView
	if err := json.Unmarshal(ev.Data, &req); err != nil {
		n.logger.Warn("bad help_request payload", zap.Error(err))
		return
	}

	text := fmt.Sprintf("🆘 %s braucht Hilfe bei %s", req.Requester.Name, req.Location.Name)
	if req.Message != nil && *req.Message != "" {
		text += "\n" + *req.Message
	}

	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		n.logger.Warn("failed to send telegram notification",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
	}
}
