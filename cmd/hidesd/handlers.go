package main

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dvbtx/hidesd/pkg/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// handleRoot identifies the service
func (d *HidesDaemon) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "hidesd",
		"version": engine.Version,
	})
}

// handleGetStatus returns daemon status
func (d *HidesDaemon) handleGetStatus(c *gin.Context) {
	status, err := d.socketClient.GetStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

// handleGetDevices lists the modulators attached to the host
func (d *HidesDaemon) handleGetDevices(c *gin.Context) {
	devices, err := d.socketClient.ListDevices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDeviceInfo returns identification for one device
func (d *HidesDaemon) handleGetDeviceInfo(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device index must be a number"})
		return
	}

	info, err := d.socketClient.GetDeviceInfo(index)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"device": info})
}

// handleStartTransmission starts sending a transport stream file
func (d *HidesDaemon) handleStartTransmission(c *gin.Context) {
	var req struct {
		File string `json:"file"`
	}

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	cmd := "START"
	if req.File != "" {
		cmd = "START:" + req.File
	}

	resp, err := d.socketClient.SendCommand(cmd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !resp.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": resp.Error})
		return
	}

	c.JSON(http.StatusOK, resp.Data)
}

// handleStopTransmission stops the current transmission
func (d *HidesDaemon) handleStopTransmission(c *gin.Context) {
	resp, err := d.socketClient.SendCommand("STOP")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !resp.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": resp.Error})
		return
	}

	c.JSON(http.StatusOK, resp.Data)
}

// handleGetGain returns the current output gain
func (d *HidesDaemon) handleGetGain(c *gin.Context) {
	gain, err := d.socketClient.GetGain()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"gain": gain})
}

// handleSetGain adjusts the output gain
func (d *HidesDaemon) handleSetGain(c *gin.Context) {
	var req struct {
		Gain *int `json:"gain" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := d.socketClient.SetGain(*req.Gain)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"gain": applied})
}

// handleGetGainRange returns the gain limits for a channel
func (d *HidesDaemon) handleGetGainRange(c *gin.Context) {
	var frequency uint64
	if raw := c.Query("frequency"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "frequency must be a number"})
			return
		}
		frequency = parsed
	}
	bandwidth := c.Query("bandwidth")

	min, max, err := d.socketClient.GetGainRange(frequency, bandwidth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"min_gain": min,
		"max_gain": max,
	})
}

// handleGetSessions returns recent transmission sessions
func (d *HidesDaemon) handleGetSessions(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20
	}

	sessions, err := d.socketClient.GetSessions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// handleGetStats returns transmission statistics
func (d *HidesDaemon) handleGetStats(c *gin.Context) {
	stats, err := d.socketClient.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleStatusWebSocket streams status updates over a websocket
func (d *HidesDaemon) handleStatusWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	// Drain client messages so pings and close frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			status, err := d.socketClient.GetStatus()
			if err != nil {
				continue
			}
			if err := conn.WriteJSON(status); err != nil {
				return
			}
		case <-done:
			return
		case <-d.ctx.Done():
			return
		}
	}
}
