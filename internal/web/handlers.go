package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/justestif/moodtube/internal/detector"
	"github.com/justestif/moodtube/internal/session"
)

// DefaultMaxFrameBytes caps the size of an uploaded camera frame.
const DefaultMaxFrameBytes = 2 << 20

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	sessions        SessionManager
	templates       *Templates
	maxFrameBytes   int64
	detectorEnabled bool
	provider        string
	logger          zerolog.Logger
}

// HandlersConfig configures Handlers.
type HandlersConfig struct {
	MaxFrameBytes   int64
	DetectorEnabled bool
	Provider        string
	Logger          zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(sessions SessionManager, templates *Templates, cfg HandlersConfig) *Handlers {
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = DefaultMaxFrameBytes
	}
	return &Handlers{
		sessions:        sessions,
		templates:       templates,
		maxFrameBytes:   cfg.MaxFrameBytes,
		detectorEnabled: cfg.DetectorEnabled,
		provider:        cfg.Provider,
		logger:          cfg.Logger,
	}
}

// stateResponse is the JSON body of every /api action.
type stateResponse struct {
	session.State
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetOrCreate(w, r)
	if err != nil {
		h.logger.Error().Err(err).Msg("creating session")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	data := HomePageData{
		PageData: PageData{
			Title:       "MoodTube",
			CurrentPath: r.URL.Path,
		},
		ResultsData:     newResultsData(sess.Machine.Snapshot(), h.provider),
		DetectorEnabled: h.detectorEnabled,
		Provider:        h.provider,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "home", data); err != nil {
		h.logger.Error().Err(err).Msg("rendering home")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// State returns the current session state (GET /api/state).
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, sess.Machine.Snapshot(), nil)
}

// Detect runs one detect cycle on the posted camera frame (POST /api/detect).
func (h *Handlers) Detect(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxFrameBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respond(w, r, http.StatusRequestEntityTooLarge, sess.Machine.Snapshot(), errors.New("frame too large"))
			return
		}
		h.respond(w, r, http.StatusBadRequest, sess.Machine.Snapshot(), errors.New("reading frame"))
		return
	}

	frame := detector.Frame{Data: data, ContentType: r.Header.Get("Content-Type")}
	if frame.Empty() && h.detectorEnabled {
		h.respond(w, r, http.StatusBadRequest, sess.Machine.Snapshot(), detector.ErrEmptyFrame)
		return
	}

	state, err := sess.Machine.TriggerDetect(r.Context(), frame)
	if errors.Is(err, session.ErrDetectInFlight) {
		h.respond(w, r, http.StatusConflict, state, err)
		return
	}
	h.respond(w, r, http.StatusOK, state, nil)
}

// Reset clears mood, results and playback (POST /api/reset).
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, sess.Machine.TriggerReset(), nil)
}

// Select marks a result for inline playback (POST /api/select/{id}).
func (h *Handlers) Select(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	h.respond(w, r, http.StatusOK, sess.Machine.SelectItem(id), nil)
}

// Healthz reports liveness (GET /healthz).
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// currentSession resolves the caller's session, writing a 500 on failure.
func (h *Handlers) currentSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := h.sessions.GetOrCreate(w, r)
	if err != nil {
		h.logger.Error().Err(err).Msg("creating session")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

// respond writes the state as the results fragment for HTML clients and as
// JSON otherwise.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, status int, state session.State, err error) {
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if rerr := h.templates.RenderPartial(w, "results", newResultsData(state, h.provider)); rerr != nil {
			h.logger.Error().Err(rerr).Msg("rendering results")
		}
		return
	}

	resp := stateResponse{State: state, Status: state.StatusLine()}
	if err != nil {
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if eerr := json.NewEncoder(w).Encode(resp); eerr != nil {
		h.logger.Error().Err(eerr).Msg("encoding state")
	}
}

// wantsHTML reports whether the client asked for an HTML fragment.
func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") != "" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
