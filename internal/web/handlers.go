package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/flashdeck/internal/domain"
)

func (s *Server) handleListDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		decks, err := s.session.Decks(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out := make([]deckView, 0, len(decks))
		for _, d := range decks {
			out = append(out, toDeckView(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type addDeckRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

func (s *Server) handleAddDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addDeckRequest
		if !decode(w, r, &req) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		deck, err := s.session.AddDeck(r.Context(), req.Name, req.Parent)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDeckView(deck))
	}
}

func (s *Server) handleDeleteDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.session.DeleteDeck(r.Context(), chi.URLParam(r, "name")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type renameDeckRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

func (s *Server) handleRenameDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameDeckRequest
		if !decode(w, r, &req) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		deck, err := s.session.RenameDeck(r.Context(), chi.URLParam(r, "name"), req.Name, req.Parent)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeckView(deck))
	}
}

type deckNodeView struct {
	deckView
	Total    int            `json:"total"`
	Due      int            `json:"due"`
	Children []deckNodeView `json:"children"`
}

func toDeckNodeViews(nodes []domain.DeckNode) []deckNodeView {
	out := make([]deckNodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, deckNodeView{
			deckView: toDeckView(n.Deck),
			Total:    n.Total,
			Due:      n.Due,
			Children: toDeckNodeViews(n.Children),
		})
	}
	return out
}

func (s *Server) handleDeckTree() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		tree, err := s.session.DeckTree(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeckNodeViews(tree))
	}
}

type statsView struct {
	Deck  string `json:"deck"`
	Total int    `json:"total"`
	Due   int    `json:"due"`
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		stats, err := s.session.Stats(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out := make([]statsView, 0, len(stats))
		for _, st := range stats {
			out = append(out, statsView{Deck: st.Deck, Total: st.Total, Due: st.Due})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		list := s.session.ListCards
		if r.URL.Query().Get("subdecks") == "true" {
			list = s.session.ListCardsWithSubdecks
		}
		cards, err := list(r.Context(), r.URL.Query().Get("deck"), limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCardViews(cards))
	}
}

type addCardRequest struct {
	Deck   string   `json:"deck"`
	Front  string   `json:"front"`
	Back   string   `json:"back"`
	Tags   string   `json:"tags"`
	Topics []string `json:"topics"`
}

func (s *Server) handleAddCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addCardRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Deck == "" {
			req.Deck = domain.RootDeckName
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		card, err := s.session.AddCard(r.Context(), domain.NewCard{
			Deck:   req.Deck,
			Front:  req.Front,
			Back:   req.Back,
			Tags:   req.Tags,
			Topics: req.Topics,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCardView(card))
	}
}

func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := cardID(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		card, err := s.session.Card(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCardView(card))
	}
}

type editCardRequest struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
	Tags  *string `json:"tags"`
}

func (s *Server) handleEditCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := cardID(w, r)
		if !ok {
			return
		}
		var req editCardRequest
		if !decode(w, r, &req) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		card, err := s.session.EditCard(r.Context(), id, domain.CardEdit{
			Front: req.Front,
			Back:  req.Back,
			Tags:  req.Tags,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCardView(card))
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := cardID(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.session.DeleteCard(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type selectDueRequest struct {
	Deck     string `json:"deck"`
	Subdecks bool   `json:"subdecks"`
	Limit    int    `json:"limit"`
}

type reviewResponse struct {
	Pending int       `json:"pending"`
	Card    *cardView `json:"card,omitempty"`
}

// handleSelectDue replaces the review queue with the cards due now.
func (s *Server) handleSelectDue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectDueRequest
		if r.ContentLength != 0 && !decode(w, r, &req) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		selectDue := s.session.SelectDue
		if req.Subdecks {
			selectDue = s.session.SelectDueWithSubdecks
		}
		cards, err := selectDue(r.Context(), req.Deck, req.Limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCardViews(cards))
	}
}

func (s *Server) handleCurrent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		card, err := s.session.Current(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		v := toCardView(card)
		writeJSON(w, http.StatusOK, reviewResponse{Pending: s.session.Pending(), Card: &v})
	}
}

type answerRequest struct {
	Quality *int `json:"quality"`
}

func (s *Server) handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Quality == nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "quality is required"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		card, err := s.session.Answer(r.Context(), *req.Quality)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		v := toCardView(card)
		writeJSON(w, http.StatusOK, reviewResponse{Pending: s.session.Pending(), Card: &v})
	}
}

type reviewLogView struct {
	CardID     int64     `json:"card_id"`
	Quality    int       `json:"quality"`
	AnsweredAt time.Time `json:"answered_at"`
}

func (s *Server) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		logs := s.session.History()
		out := make([]reviewLogView, 0, len(logs))
		for _, l := range logs {
			out = append(out, reviewLogView{
				CardID:     l.CardID,
				Quality:    l.Quality,
				AnsweredAt: l.AnsweredAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": s.session.ID(),
			"answers":    out,
		})
	}
}

func (s *Server) handleUndo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		msg, err := s.session.Undo(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}

func (s *Server) handleRedo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		msg, err := s.session.Redo(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}

func (s *Server) handleTopicGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.session.LoadIndexes(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.session.TopicGraph())
	}
}

type linkTopicsRequest struct {
	Src    string   `json:"src"`
	Dst    string   `json:"dst"`
	Weight *float64 `json:"weight"`
}

func (s *Server) handleLinkTopics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req linkTopicsRequest
		if !decode(w, r, &req) {
			return
		}
		weight := 1.0
		if req.Weight != nil {
			weight = *req.Weight
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.session.LinkTopics(r.Context(), req.Src, req.Dst, weight); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
