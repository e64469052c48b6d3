package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/emontero/opphunter/internal/core/domain"
	"github.com/emontero/opphunter/internal/observability"
)

const slackTimeout = 15 * time.Second

// SlackNotifier posts alerts to a Slack incoming webhook, routing by
// country. Feedback buttons are rendered as links into the feedback server.
type SlackNotifier struct {
	webhookURL  string
	feedbackURL string
	router      *Router
	client      *http.Client
	logger      *zerolog.Logger
}

// NewSlack creates the Slack webhook notifier. feedbackURL is the externally
// reachable base of the feedback server, used to build the decision links.
func NewSlack(webhookURL, feedbackURL string, router *Router, logger *zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL:  webhookURL,
		feedbackURL: feedbackURL,
		router:      router,
		client:      &http.Client{Timeout: slackTimeout},
		logger:      logger,
	}
}

type slackPayload struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

func (n *SlackNotifier) Notify(ctx context.Context, c domain.Candidate, result *domain.AnalysisResult) error {
	text := formatAlert(c, result)

	if n.feedbackURL != "" {
		text += fmt.Sprintf("\n\n<%s/feedback?id=%s&decision=relevant|Relevant> | <%s/feedback?id=%s&decision=irrelevant|Irrelevant>",
			n.feedbackURL, c.ID, n.feedbackURL, c.ID)
	}

	payload, err := json.Marshal(slackPayload{
		Channel: n.router.Channel(c.Country),
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		observability.NotificationsSent.WithLabelValues("error").Inc()

		return fmt.Errorf("slack webhook: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		observability.NotificationsSent.WithLabelValues("error").Inc()

		return fmt.Errorf("slack webhook status %d", resp.StatusCode)
	}

	observability.NotificationsSent.WithLabelValues("sent").Inc()
	n.logger.Info().Str("candidate", c.ID).Str("channel", n.router.Channel(c.Country)).Msg("alert delivered")

	return nil
}
