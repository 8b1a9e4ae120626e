// Package web serves one study session over a JSON HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/session"
)

// Server holds the dependencies for the HTTP server. Every handler takes
// mu before touching the session.
type Server struct {
	mu      sync.Mutex
	session *session.Session
	router  chi.Router
	log     *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(s *session.Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		session: s,
		router:  chi.NewRouter(),
		log:     logger,
	}
	srv.routes()
	return srv
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/decks", s.handleListDecks())
		r.Post("/decks", s.handleAddDeck())
		r.Get("/decks/tree", s.handleDeckTree())
		r.Patch("/decks/{name}", s.handleRenameDeck())
		r.Delete("/decks/{name}", s.handleDeleteDeck())
		r.Get("/stats", s.handleStats())

		r.Get("/cards", s.handleListCards())
		r.Post("/cards", s.handleAddCard())
		r.Get("/cards/{id}", s.handleGetCard())
		r.Patch("/cards/{id}", s.handleEditCard())
		r.Delete("/cards/{id}", s.handleDeleteCard())

		r.Post("/review", s.handleSelectDue())
		r.Get("/review/current", s.handleCurrent())
		r.Post("/review/answer", s.handleAnswer())
		r.Get("/review/history", s.handleHistory())

		r.Post("/undo", s.handleUndo())
		r.Post("/redo", s.handleRedo())

		r.Get("/topics/graph", s.handleTopicGraph())
		r.Post("/topics/links", s.handleLinkTopics())
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type cardView struct {
	ID             int64      `json:"id"`
	DeckID         int64      `json:"deck_id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Tags           string     `json:"tags,omitempty"`
	Topics         []string   `json:"topics,omitempty"`
	Easiness       float64    `json:"easiness"`
	Interval       float64    `json:"interval"`
	Repetitions    int        `json:"repetitions"`
	DueAt          *time.Time `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
	Successes      int        `json:"successes"`
	Failures       int        `json:"failures"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toCardView(c domain.Card) cardView {
	return cardView{
		ID:             c.ID,
		DeckID:         c.DeckID,
		Front:          c.Front,
		Back:           c.Back,
		Tags:           c.Tags,
		Topics:         c.Topics,
		Easiness:       c.Easiness,
		Interval:       c.Interval,
		Repetitions:    c.Repetitions,
		DueAt:          c.DueAt,
		LastReviewedAt: c.LastReviewedAt,
		Successes:      c.Successes,
		Failures:       c.Failures,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toCardViews(cards []domain.Card) []cardView {
	out := make([]cardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardView(c))
	}
	return out
}

type deckView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

func toDeckView(d domain.Deck) deckView {
	return deckView{ID: d.ID, Name: d.Name, ParentID: d.ParentID}
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrDeckNotFound), errors.Is(err, domain.ErrCardNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuality),
		errors.Is(err, domain.ErrNoFieldsToUpdate),
		errors.Is(err, domain.ErrEmptyName),
		errors.As(err, &verrs):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDeckExists),
		errors.Is(err, domain.ErrDeckHasChildren),
		errors.Is(err, domain.ErrRootDeck),
		errors.Is(err, domain.ErrDeckCycle),
		errors.Is(err, domain.ErrQueueEmpty),
		errors.Is(err, domain.ErrNothingToUndo),
		errors.Is(err, domain.ErrNothingToRedo):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func cardID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return 0, false
	}
	return id, true
}

func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit parameter"})
		return 0, false
	}
	return n, true
}
