package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emontero/opphunter/internal/core/domain"
)

func TestRouterChannel(t *testing.T) {
	router := NewRouter(map[string]string{"MX": "#latam", "BR": "#brazil"}, "#general")

	assert.Equal(t, "#latam", router.Channel("mx"))
	assert.Equal(t, "#brazil", router.Channel("BR"))
	assert.Equal(t, "#general", router.Channel("DE"))
	assert.Equal(t, "#general", router.Channel(""))
}

func TestFormatAlert(t *testing.T) {
	c := domain.Candidate{
		Headline:  "Kueski raises Series C",
		SourceURL: "https://news.example/kueski",
		Country:   "MX",
	}
	result := &domain.AnalysisResult{
		CompanyName:        "Kueski",
		OpportunitySummary: "Mexican BNPL provider raised new funding to expand.",
		ProposedSolution:   "Platform scaling engagement",
	}

	text := formatAlert(c, result)

	assert.Contains(t, text, "*Kueski*")
	assert.Contains(t, text, "Kueski raises Series C")
	assert.Contains(t, text, "Platform scaling engagement")
	assert.Contains(t, text, "https://news.example/kueski")
}

func TestSlackNotifierRoutesAndDelivers(t *testing.T) {
	var got slackPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	router := NewRouter(map[string]string{"MX": "#latam"}, "#general")
	notifier := NewSlack(srv.URL, "https://hunter.example", router, &logger)

	c := domain.Candidate{ID: "c1", Headline: "h", SourceURL: "u", Country: "MX"}
	require.NoError(t, notifier.Notify(context.Background(), c, &domain.AnalysisResult{}))

	assert.Equal(t, "#latam", got.Channel)
	assert.Contains(t, got.Text, "decision=relevant")
	assert.Contains(t, got.Text, "decision=irrelevant")
}

func TestFeedbackKeyboardLinksIntoFeedbackServer(t *testing.T) {
	keyboard := feedbackKeyboard("https://hunter.example", "c1")
	require.NotNil(t, keyboard)
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 2)

	relevant := keyboard.InlineKeyboard[0][0]
	irrelevant := keyboard.InlineKeyboard[0][1]

	require.NotNil(t, relevant.URL)
	require.NotNil(t, irrelevant.URL)
	assert.Equal(t, "https://hunter.example/feedback?id=c1&decision=relevant", *relevant.URL)
	assert.Equal(t, "https://hunter.example/feedback?id=c1&decision=irrelevant", *irrelevant.URL)
}

func TestFeedbackKeyboardWithoutBaseURL(t *testing.T) {
	assert.Nil(t, feedbackKeyboard("", "c1"))
}

func TestSlackNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	notifier := NewSlack(srv.URL, "", NewRouter(nil, "#general"), &logger)

	err := notifier.Notify(context.Background(), domain.Candidate{ID: "c1"}, &domain.AnalysisResult{})
	assert.Error(t, err)
}
