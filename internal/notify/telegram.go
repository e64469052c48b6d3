package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/emontero/opphunter/internal/core/domain"
	"github.com/emontero/opphunter/internal/observability"
)

// TelegramNotifier delivers alerts to a Telegram chat with inline feedback
// buttons. Buttons are plain URL buttons into the feedback server, the same
// links the Slack notifier renders, so a tap lands on the HTTP endpoint.
type TelegramNotifier struct {
	api         *tgbotapi.BotAPI
	chatID      int64
	feedbackURL string
	logger      *zerolog.Logger
}

// NewTelegram creates the Telegram notifier. feedbackURL is the externally
// reachable base of the feedback server; when empty, alerts carry no buttons.
func NewTelegram(token string, chatID int64, feedbackURL string, logger *zerolog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	return &TelegramNotifier{api: api, chatID: chatID, feedbackURL: feedbackURL, logger: logger}, nil
}

// feedbackKeyboard builds the relevant/irrelevant URL buttons for one
// candidate, or nil when no feedback server base is configured.
func feedbackKeyboard(feedbackURL, candidateID string) *tgbotapi.InlineKeyboardMarkup {
	if feedbackURL == "" {
		return nil
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👍 Relevant",
				fmt.Sprintf("%s/feedback?id=%s&decision=relevant", feedbackURL, candidateID)),
			tgbotapi.NewInlineKeyboardButtonURL("👎 Irrelevant",
				fmt.Sprintf("%s/feedback?id=%s&decision=irrelevant", feedbackURL, candidateID)),
		),
	)

	return &markup
}

func (n *TelegramNotifier) Notify(_ context.Context, c domain.Candidate, result *domain.AnalysisResult) error {
	msg := tgbotapi.NewMessage(n.chatID, formatAlert(c, result))

	if keyboard := feedbackKeyboard(n.feedbackURL, c.ID); keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	if _, err := n.api.Send(msg); err != nil {
		observability.NotificationsSent.WithLabelValues("error").Inc()

		return fmt.Errorf("send telegram alert: %w", err)
	}

	observability.NotificationsSent.WithLabelValues("sent").Inc()
	n.logger.Info().Str("candidate", c.ID).Int64("chat", n.chatID).Msg("alert delivered")

	return nil
}
