package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vpntools/vpnconsole/internal/logstore"
	"github.com/vpntools/vpnconsole/internal/model"
)

// BackupRunner is the narrow backup contract required by the HTTP API.
type BackupRunner interface {
	RunOnce() (string, error)
}

// LogStatser is the optional statistics contract. The DuckDB store
// provides it; archives that don't get a 501 on the stats endpoint.
type LogStatser interface {
	TypeCounts() (map[model.Category]int64, error)
	CountsByMinute(window time.Duration) ([]logstore.MinuteCounts, error)
}

// Deps carries everything the API serves from.
type Deps struct {
	Archive model.LogArchive
	Hub     model.LogBroadcaster
	Service model.ServiceController
	Backups BackupRunner
	// ConfigPath points at the OpenVPN server.conf managed by the
	// config endpoints.
	ConfigPath string
}

// Server provides the web console HTTP API.
type Server struct {
	addr      string
	deps      Deps
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, deps Deps) *Server {
	if addr == "" {
		addr = "0.0.0.0:5000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Router builds the gin engine with all API routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)

	r.GET("/api/service_status", s.handleServiceStatus)
	r.GET("/api/service_pid", s.handleServicePID)
	r.POST("/api/start_server", s.handleAction(model.ActionStart))
	r.POST("/api/stop_server", s.handleAction(model.ActionStop))
	r.POST("/api/restart_server", s.handleAction(model.ActionRestart))

	r.POST("/api/active_connections", s.handleActiveConnections)
	r.POST("/api/add_client", s.handleAddClient)
	r.POST("/api/revoke_client", s.handleRevokeClient)
	r.POST("/api/disconnect_client", s.handleDisconnectClient)

	r.POST("/api/backup_config", s.handleBackupConfig)
	r.GET("/api/openvpn/config", s.handleGetConfig)
	r.POST("/api/openvpn/config", s.handleUpdateConfig)

	r.GET("/api/openvpn/logs", s.handleLogs)
	r.GET("/api/openvpn/logs/stats", s.handleLogStats)
	r.GET("/api/openvpn/logs/stream", s.handleLogStream)

	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.Router(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: the SSE stream stays open indefinitely.
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	logCount, err := s.deps.Archive.TotalCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).String(),
		"log_count": logCount,
	})
}
