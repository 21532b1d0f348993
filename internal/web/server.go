package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/peterkuimelis/clash/internal/battle"
	"github.com/peterkuimelis/clash/internal/metrics"
	clashnet "github.com/peterkuimelis/clash/internal/net"
)

// SkillInfo is the JSON representation of a skill for the /api/skills endpoint.
type SkillInfo struct {
	Name     string `json:"name"`
	Cost     int    `json:"cost"`
	Targeted bool   `json:"targeted"`
	Exhaust  bool   `json:"exhaust,omitempty"`
	Text     string `json:"text"`
}

// Options configures a Server. Metrics may be nil.
type Options struct {
	Session clashnet.SessionConfig
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Server is the presentation bridge: a browser opens /ws and drives one
// battle per socket with the same messages the TCP protocol uses.
type Server struct {
	session   clashnet.SessionConfig
	catalogue battle.Catalogue
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	mux       *http.ServeMux
}

// NewServer creates a new web server.
func NewServer(opts Options) *Server {
	catalogue := opts.Session.Battle.Catalogue
	if catalogue == nil {
		catalogue = battle.DefaultCatalogue
	}
	s := &Server{
		session:   opts.Session,
		catalogue: catalogue,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With().Str("component", "web").Logger(),
		mux:       http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.handle("GET /api/skills", s.handleSkills)
	s.handle("GET /api/loadouts", s.handleLoadouts)
	s.handle("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// WebSocket session
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// handle registers fn and records its requests under the route pattern.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, r.Pattern, rec.status, time.Since(start))
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	var skills []SkillInfo
	for _, sk := range s.catalogue.Skills() {
		skills = append(skills, SkillInfo{
			Name:     sk.Name,
			Cost:     sk.Cost,
			Targeted: sk.Targeted,
			Exhaust:  sk.Exhaust,
			Text:     sk.Text,
		})
	}
	writeJSON(w, skills)
}

func (s *Server) handleLoadouts(w http.ResponseWriter, r *http.Request) {
	loadouts := s.session.Loadouts
	if len(loadouts) == 0 {
		loadouts = []battle.Loadout{battle.Starter}
	}
	var infos []LoadoutInfo
	for i, l := range loadouts {
		infos = append(infos, describeLoadout(i+1, l))
	}
	writeJSON(w, infos)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow connections from any origin
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer wsConn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	out := clashnet.SenderFunc(func(msg clashnet.ServerMessage) error {
		return wsjson.Write(ctx, wsConn, msg)
	})
	cfg := s.session
	cfg.Logger = s.logger.With().Str("remote", r.RemoteAddr).Logger()
	sess := clashnet.NewSession(cfg, out)
	defer func() {
		cancel()
		sess.Close()
	}()

	for {
		var msg clashnet.ClientMessage
		if err := wsjson.Read(ctx, wsConn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				s.logger.Debug().Err(err).Msg("websocket read")
			}
			return
		}
		if err := sess.Handle(ctx, msg); err != nil {
			_ = out.Send(clashnet.ServerMessage{Type: clashnet.MsgError, Error: err.Error()})
		}
	}
}

// Handler exposes the routes, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
