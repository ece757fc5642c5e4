// Package web serves the review UI. All session state lives server-side in
// the sequencer; the browser only ever acts on the current card.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/review"
	"github.com/conorfennell/recall/internal/scheduler"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/vaultsync"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Session bundles everything one review pass needs.
type Session struct {
	Sequencer     *review.Sequencer
	Postponements *review.PostponementList
}

// SessionBuilder produces a fresh session after every sync.
type SessionBuilder func(mode review.Mode) (*Session, error)

// Server holds the dependencies for the HTTP server.
type Server struct {
	db         *storage.DB
	cfg        config.Config
	router     *http.ServeMux
	templates  *template.Template
	calculator *scheduler.Calculator
	build      SessionBuilder

	mu      sync.Mutex
	session *Session
}

// NewServer creates and configures a new server. The session builder is
// invoked once up front and again on every manual sync.
func NewServer(db *storage.DB, cfg config.Config, calculator *scheduler.Calculator, build SessionBuilder, mode review.Mode) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:         db,
		cfg:        cfg,
		router:     http.NewServeMux(),
		templates:  tpl,
		calculator: calculator,
		build:      build,
	}
	if err := s.rebuildSession(mode); err != nil {
		return nil, err
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("Failed to create sub-filesystem for static assets: %v", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("/static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("/", fileServer)

	// HTMX-based routes
	s.router.HandleFunc("/decks", s.handleGetDecks())
	s.router.HandleFunc("/decks/", s.handleSelectDeck())
	s.router.HandleFunc("/review/next", s.handleGetNextCard())
	s.router.HandleFunc("/review/answer", s.handleShowAnswer())
	s.router.HandleFunc("/review/grade", s.handlePostGrade())
	s.router.HandleFunc("/review/skip", s.handlePostSkip())

	// Source management routes
	s.router.HandleFunc("/sources", s.handleSources())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

func (s *Server) rebuildSession(mode review.Mode) error {
	session, err := s.build(mode)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	return nil
}

// deckView is the template payload for one deck row.
type deckView struct {
	Name  string
	Path  string
	Stats review.DeckStats
}

// handleGetDecks renders the deck tree with per-deck counts.
func (s *Server) handleGetDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		seq := s.session.Sequencer
		var views []deckView
		for _, d := range seq.OriginalTree().Flatten() {
			path := d.TopicPath()
			stats, err := seq.Stats(path)
			if err != nil {
				// Filtered out of the remaining tree entirely.
				continue
			}
			views = append(views, deckView{
				Name:  strings.Repeat("· ", path.Len()) + d.Name,
				Path:  path.String(),
				Stats: stats,
			})
		}
		midnight := time.Now().UTC().Truncate(24 * time.Hour)
		reviewsToday, err := s.db.CountReviewsSince(midnight)
		if err != nil {
			log.Printf("Error counting reviews: %v", err)
		}
		s.templates.ExecuteTemplate(w, "deck_list", map[string]interface{}{
			"Decks":        views,
			"ReviewsToday": reviewsToday,
		})
	}
}

// handleSelectDeck re-roots the session at a subtree and shows its first card.
func (s *Server) handleSelectDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		pathStr := strings.TrimPrefix(r.URL.Path, "/decks/")

		s.mu.Lock()
		defer s.mu.Unlock()

		topic := deck.EmptyPath()
		if pathStr != "" {
			segments := strings.Split(pathStr, "/")
			t, err := deck.NewTopicPath(segments...)
			if err != nil {
				http.Error(w, "Invalid deck path", http.StatusBadRequest)
				return
			}
			topic = t
		}
		if err := s.session.Sequencer.SetCurrentDeck(topic); err != nil {
			if errors.Is(err, review.ErrUnknownDeck) {
				http.NotFound(w, r)
				return
			}
			log.Printf("Error selecting deck %q: %v", pathStr, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.renderCurrentCard(w)
	}
}

// handleGetNextCard renders the front of the current card.
func (s *Server) handleGetNextCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.renderCurrentCard(w)
	}
}

// renderCurrentCard shows the current card front, or the done view when the
// pass is finished. Callers must hold the lock.
func (s *Server) renderCurrentCard(w http.ResponseWriter) {
	seq := s.session.Sequencer
	if !seq.HasCurrentCard() {
		s.templates.ExecuteTemplate(w, "done", nil)
		return
	}
	card := seq.CurrentCard()
	s.templates.ExecuteTemplate(w, "card_front", map[string]interface{}{
		"Front":   card.Front,
		"Deck":    seq.CurrentDeck().TopicPath().String(),
		"Context": card.Question.Context,
	})
}

// gradeView labels one grade button with the schedule it would produce.
type gradeView struct {
	Name    string
	Preview string
}

// handleShowAnswer renders the back of the current card with grade buttons.
func (s *Server) handleShowAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		seq := s.session.Sequencer
		if !seq.HasCurrentCard() {
			s.templates.ExecuteTemplate(w, "done", nil)
			return
		}
		card := seq.CurrentCard()

		var grades []gradeView
		for _, g := range []scheduler.Grade{scheduler.Hard, scheduler.Good, scheduler.Easy} {
			schedule, err := seq.DetermineSchedule(g, card)
			if err != nil {
				log.Printf("Error previewing grade %s: %v", g, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			grades = append(grades, gradeView{
				Name:    g.String(),
				Preview: formatInterval(schedule.Interval),
			})
		}
		if card.HasSchedule() {
			grades = append(grades, gradeView{Name: scheduler.Reset.String(), Preview: "start over"})
		}

		var noteEase float64
		if n := seq.CurrentNote(); n != nil {
			noteEase = scheduler.NoteEase(n.ScheduledEases(), s.cfg.Scheduling.BaseEase)
		}

		s.templates.ExecuteTemplate(w, "card_back", map[string]interface{}{
			"Front":    card.Front,
			"Back":     card.Back,
			"Grades":   grades,
			"NoteEase": noteEase,
		})
	}
}

// handlePostGrade applies the grade to the current card and shows the next.
func (s *Server) handlePostGrade() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		grade, err := scheduler.ParseGrade(r.PostFormValue("grade"))
		if err != nil {
			http.Error(w, "Invalid grade", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		seq := s.session.Sequencer
		if !seq.HasCurrentCard() {
			s.templates.ExecuteTemplate(w, "done", nil)
			return
		}
		question := seq.CurrentQuestion()

		if err := seq.Respond(grade); err != nil {
			log.Printf("Error grading card: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.logReview(question, grade)
		s.renderCurrentCard(w)
	}
}

// logReview records the graded answer; failures are logged, never surfaced.
func (s *Server) logReview(q *deck.Question, grade scheduler.Grade) {
	interval, ease := 0, 0
	for _, c := range q.Cards {
		if c.HasSchedule() {
			interval, ease = c.Schedule.Interval, c.Schedule.Ease
			break
		}
	}
	err := s.db.LogReview(review.QuestionIdentity(q), grade.String(), interval, ease, time.Now())
	if err != nil {
		log.Printf("Error logging review: %v", err)
	}
}

// handlePostSkip drops the current question for this pass.
func (s *Server) handlePostSkip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.session.Sequencer.Skip(); err != nil && !errors.Is(err, review.ErrNoCurrentCard) {
			log.Printf("Error skipping card: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.renderCurrentCard(w)
	}
}

// handlePostSync re-syncs all sources and rebuilds the session.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		mode := review.ReviewMode
		if r.PostFormValue("mode") == "cram" {
			mode = review.CramMode
		}
		if err := s.rebuildSession(mode); err != nil {
			log.Printf("Error rebuilding session: %v", err)
			http.Error(w, "Sync failed", http.StatusInternalServerError)
			return
		}

		s.templates.ExecuteTemplate(w, "sync_success", nil)
		s.renderSourceList(w)
	}
}

// handleSources handles both GET and POST for the sources page.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSources(w, r)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleGetSources renders the sources management page.
func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		log.Printf("Error getting sources: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.templates.ExecuteTemplate(w, "sources", map[string]interface{}{
		"Sources": sources,
	})
}

// handlePostSource adds a new source and re-renders the source list.
func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := r.PostFormValue("path")
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}

	if _, err := s.db.InsertSource(path, vaultsync.SourceKind(path)); err != nil {
		log.Printf("Error inserting new source: %v", err)
		http.Error(w, "Failed to add source", http.StatusInternalServerError)
		return
	}
	s.renderSourceList(w)
}

func (s *Server) renderSourceList(w http.ResponseWriter) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		log.Printf("Error getting sources: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.templates.ExecuteTemplate(w, "source_list", map[string]interface{}{
		"Sources": sources,
	})
}

func formatInterval(days int) string {
	switch {
	case days == 1:
		return "1 day"
	case days < 31:
		return fmt.Sprintf("%d days", days)
	case days < 365:
		return fmt.Sprintf("%.1f months", float64(days)/30.4)
	default:
		return fmt.Sprintf("%.1f years", float64(days)/365.25)
	}
}
