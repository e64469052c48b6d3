// Package feedback receives user decisions from the notification channel
// and forwards them into the learning loop. It runs as its own process (or
// goroutine) decoupled from the batch cycle.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/emontero/opphunter/internal/learning"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server exposes the feedback endpoint.
type Server struct {
	loop   *learning.Loop
	port   int
	logger *zerolog.Logger
}

// NewServer creates the feedback server.
func NewServer(loop *learning.Loop, port int, logger *zerolog.Logger) *Server {
	return &Server{loop: loop, port: port, logger: logger}
}

type feedbackRequest struct {
	CandidateID string `json:"candidate_id"`
	Decision    string `json:"decision"`
	Comment     string `json:"comment"`
}

// Handler returns the HTTP handler, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/feedback", s.handleFeedback)

	return mux
}

// handleFeedback accepts the decision either as query parameters (the link
// form used by Slack alerts) or as a JSON body.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	req := feedbackRequest{
		CandidateID: r.URL.Query().Get("id"),
		Decision:    r.URL.Query().Get("decision"),
		Comment:     r.URL.Query().Get("comment"),
	}

	if r.Method == http.MethodPost && req.CandidateID == "" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed feedback payload", http.StatusBadRequest)

			return
		}
	}

	if req.CandidateID == "" {
		http.Error(w, "missing candidate id", http.StatusBadRequest)

		return
	}

	err := s.loop.OnUserFeedback(r.Context(), req.CandidateID, req.Decision, req.Comment)

	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "feedback recorded")
	case errors.Is(err, learning.ErrUnknownCandidate):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, learning.ErrInvalidDecision), errors.Is(err, learning.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error().Err(err).Str("candidate", req.CandidateID).Msg("feedback processing failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// Start runs the server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("feedback server shutdown")
		}
	}()

	s.logger.Info().Int("port", s.port).Msg("feedback server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("feedback server: %w", err)
	}

	return nil
}
