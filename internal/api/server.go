// Package api serves the monitor's live status over HTTP and websocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"futureswatch/internal/logging"
	"futureswatch/internal/monitor"
	"futureswatch/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
	writeWait         = 10 * time.Second
)

// StatusSource provides the live monitor state.
type StatusSource interface {
	Status() monitor.Status
}

// AlertHistory provides stored alerts and the cycle log.
type AlertHistory interface {
	RecentAlerts(limit int) ([]store.AlertRecord, error)
	AlertsForSymbol(symbol string, limit int) ([]store.AlertRecord, error)
	CycleStats() (store.CycleStats, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the status API.
type Server struct {
	engine  *gin.Engine
	srv     *http.Server
	status  StatusSource
	history AlertHistory
	hub     *Hub
}

// NewServer builds the router. history may be nil when persistence is off.
func NewServer(addr string, status StatusSource, history AlertHistory, hub *Hub) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	s := &Server{
		engine:  r,
		status:  status,
		history: history,
		hub:     hub,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	r.GET("/healthz", s.handleHealth)
	r.GET("/stats", s.handleStats)
	r.GET("/strategy", s.handleStrategy)
	r.GET("/alerts", s.handleAlerts)
	r.GET("/ws/alerts", s.handleAlertStream)
	return s
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.APIDebug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.API("status API listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		logging.APIError("shutdown: %v", err)
		return err
	}
	<-errCh
	logging.API("status API stopped")
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	st := s.status.Status()
	body := gin.H{
		"stats":         st.Stats,
		"active_alerts": len(st.ActiveAlerts),
		"active":        st.ActiveAlerts,
		"symbols":       len(st.Symbols),
	}
	// Totals across restarts come from the store.
	if s.history != nil {
		if cycles, err := s.history.CycleStats(); err != nil {
			logging.APIError("cycle stats: %v", err)
		} else {
			body["history"] = cycles
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleStrategy(c *gin.Context) {
	st := s.status.Status()
	c.JSON(http.StatusOK, gin.H{
		"strategy":  st.Strategy,
		"symbols":   st.Symbols,
		"timeframe": st.Timeframe,
	})
}

func (s *Server) handleAlerts(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert history is disabled"})
		return
	}

	limit := defaultAlertLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	var (
		alerts []store.AlertRecord
		err    error
	)
	if symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol"))); symbol != "" {
		alerts, err = s.history.AlertsForSymbol(symbol, limit)
	} else {
		alerts, err = s.history.RecentAlerts(limit)
	}
	if err != nil {
		logging.APIError("alert history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
		return
	}
	if alerts == nil {
		alerts = []store.AlertRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

func (s *Server) handleAlertStream(c *gin.Context) {
	if s.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed is disabled"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, leave := s.hub.Subscribe()
	defer leave()
	logging.API("websocket subscriber connected (%d live)", s.hub.Subscribers())

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
