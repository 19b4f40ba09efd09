package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vpntools/vpnconsole/internal/model"
	"github.com/vpntools/vpnconsole/internal/vpnconf"
)

func (s *Server) handleServiceStatus(c *gin.Context) {
	status, err := s.deps.Service.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleServicePID(c *gin.Context) {
	pid, err := s.deps.Service.PID()
	if err != nil {
		// Unknown PID is not an error for the caller; the console
		// degrades to showing the service as running without one.
		c.JSON(http.StatusOK, gin.H{"pid": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pid": pid})
}

func (s *Server) handleAction(action model.ServiceAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		var err error
		switch action {
		case model.ActionStart:
			err = s.deps.Service.Start()
		case model.ActionStop:
			err = s.deps.Service.Stop()
		case model.ActionRestart:
			err = s.deps.Service.Restart()
		}
		if err != nil {
			log.WithError(err).WithField("action", action).Error("service action failed")
			c.JSON(http.StatusOK, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (s *Server) handleActiveConnections(c *gin.Context) {
	clients, err := s.deps.Service.ActiveClients()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if clients == nil {
		clients = []model.VPNClient{}
	}
	c.JSON(http.StatusOK, clients)
}

type clientRequest struct {
	Username string `json:"username" binding:"required"`
}

func (s *Server) handleAddClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	if err := s.deps.Service.AddClient(req.Username); err != nil {
		log.WithError(err).WithField("username", req.Username).Error("add client failed")
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleRevokeClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	if err := s.deps.Service.RevokeClient(req.Username); err != nil {
		log.WithError(err).WithField("username", req.Username).Error("revoke client failed")
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Disconnecter is implemented by service controllers that can kill a
// live client session.
type Disconnecter interface {
	DisconnectClient(username string) error
}

func (s *Server) handleDisconnectClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	d, ok := s.deps.Service.(Disconnecter)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	if err := d.DisconnectClient(req.Username); err != nil {
		log.WithError(err).WithField("username", req.Username).Warn("disconnect client failed")
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleBackupConfig(c *gin.Context) {
	if s.deps.Backups == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "backup_path": ""})
		return
	}
	path, err := s.deps.Backups.RunOnce()
	if err != nil {
		log.WithError(err).Error("config backup failed")
		c.JSON(http.StatusOK, gin.H{"success": false, "backup_path": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "backup_path": path})
}

func (s *Server) handleLogStats(c *gin.Context) {
	stats, ok := s.deps.Archive.(LogStatser)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "log statistics not supported"})
		return
	}

	typeCounts, err := stats.TypeCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	perMinute, err := stats.CountsByMinute(time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type_counts": typeCounts,
		"per_minute":  perMinute,
	})
}

func (s *Server) handleGetConfig(c *gin.Context) {
	conf, err := vpnconf.Parse(s.deps.ConfigPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, conf)
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	var conf vpnconf.ServerConfig
	if err := c.ShouldBindJSON(&conf); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid configuration payload"})
		return
	}
	if err := conf.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := vpnconf.Write(s.deps.ConfigPath, conf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Service.Restart(); err != nil {
		log.WithError(err).Error("restart after config update failed")
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Configuration updated but failed to restart OpenVPN service.",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration updated and OpenVPN service restarted.",
	})
}
