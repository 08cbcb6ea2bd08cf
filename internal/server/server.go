package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cryptodash/config"
	"cryptodash/internal/chart"
	"cryptodash/internal/dashboard"
	"cryptodash/internal/market/source"
	"cryptodash/pkg/coingecko"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxChartSide caps requested PNG dimensions.
const maxChartSide = 4096

// Dashboard is what the display surface needs from the view owner.
type Dashboard interface {
	View(ctx context.Context, period coingecko.Period) dashboard.View
	Current(period coingecko.Period) dashboard.View
	Toggle(id string) bool
	Refresh(ctx context.Context) source.Result
}

// Server exposes the dashboard over HTTP and pushes view updates over WebSocket.
type Server struct {
	cfg      config.ServerConfig
	chart    config.ChartConfig
	dash     Dashboard
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.ServerConfig, chartCfg config.ChartConfig, dash Dashboard, hub *Hub, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		chart:  chartCfg,
		dash:   dash,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/periods", s.handlePeriods)
	mux.HandleFunc("POST /api/selection/{id}/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/comparison.png", s.handleChart)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withLogging(mux)
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http server shutdown error", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.dash.View(r.Context(), period))
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, dashboard.Periods())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id := r.PathValue("id")
	selected := s.dash.Toggle(id)
	s.hub.Notify()
	s.logger.Debug("toggle via http", zap.String("id", id), zap.Bool("selected", selected))
	s.writeJSON(w, http.StatusOK, s.dash.Current(period))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.hub.Notify()
	s.dash.Refresh(r.Context())
	s.writeJSON(w, http.StatusOK, s.dash.Current(period))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	width, err := intParam(r, "width", s.chart.Width)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	height, err := intParam(r, "height", s.chart.Height)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	view := s.dash.View(r.Context(), period)
	if view.State != dashboard.StateReady {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	opts := chart.Options{Width: width, Height: height, Title: view.Period.Label}
	if err := chart.RenderPNG(&buf, view.Comparison, opts); err != nil {
		if errors.Is(err, chart.ErrNothingToRender) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.logger.Error("failed to render comparison chart", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.Len()})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newWSClient(conn)
	s.hub.add(c)
	c.wake()

	go s.writeLoop(c)
	s.readLoop(c)
}

// readLoop applies client commands until the connection fails.
func (s *Server) readLoop(c *wsClient) {
	defer func() {
		s.hub.remove(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}

		m, err := parseClientMessage(msg)
		if err != nil {
			s.logger.Debug("rejected client message", zap.String("client", c.id), zap.Error(err))
			c.queueError(err)
			continue
		}

		switch m.Op {
		case OpToggle:
			s.dash.Toggle(m.ID)
			s.hub.Notify()
		case OpPeriod:
			c.setPeriod(m.Period)
			c.wake()
		case OpRefresh:
			s.hub.Notify()
			go s.dash.Refresh(context.Background())
		}
	}
}

// writeLoop sends the client's view on every wake-up and keeps the
// connection alive with pings.
func (s *Server) writeLoop(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
			for _, e := range c.takeErrors() {
				if err := s.write(c, e); err != nil {
					return
				}
			}
			if err := s.write(c, s.dash.Current(c.currentPeriod())); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(c *wsClient, v any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		s.logger.Warn("dropping websocket client", zap.String("client", c.id), zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// periodParam reads ?period=, defaulting to the 7-day period.
func periodParam(r *http.Request) (coingecko.Period, error) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return coingecko.DefaultPeriod, nil
	}
	return coingecko.ParsePeriod(raw)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxChartSide {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}
