package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dvbtx/hidesd/pkg/client"
	"github.com/dvbtx/hidesd/pkg/config"
	"github.com/dvbtx/hidesd/pkg/engine"
)

// HidesDaemon wires the core engine, the control socket, and the web
// API together. The web layer never touches the engine directly; it
// goes through the same socket protocol every other client uses.
type HidesDaemon struct {
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	coreEngine   *engine.CoreEngine
	socketClient *client.SocketClient
	webServer    *http.Server

	socketPath string
}

// NewHidesDaemon creates a new daemon instance
func NewHidesDaemon(cfg *config.Config) (*HidesDaemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	socketPath := cfg.API.UnixSocket
	if socketPath == "" {
		socketPath = "/tmp/hidesd.sock"
	}

	daemon := &HidesDaemon{
		config:       cfg,
		ctx:          ctx,
		cancel:       cancel,
		socketPath:   socketPath,
		socketClient: client.NewSocketClient(socketPath),
	}

	daemon.coreEngine = engine.NewCoreEngine(cfg, socketPath)

	if err := daemon.setupWebServer(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup web server: %w", err)
	}

	return daemon, nil
}

// Start starts the daemon
func (d *HidesDaemon) Start() error {
	log.Printf("Starting hidesd daemon...")

	// Start core engine first
	if err := d.coreEngine.Start(); err != nil {
		return fmt.Errorf("failed to start core engine: %w", err)
	}

	// Wait a moment for socket to be ready
	time.Sleep(100 * time.Millisecond)

	// Test socket connection
	if !d.socketClient.IsConnected() {
		return fmt.Errorf("failed to connect to core engine socket")
	}

	// Start web server
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		addr := fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port)
		log.Printf("Starting web server on %s", addr)
		if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Web server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the daemon gracefully
func (d *HidesDaemon) Stop() error {
	log.Printf("Stopping daemon...")

	d.cancel()

	// Shutdown web server
	if d.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.webServer.Shutdown(ctx); err != nil {
			log.Printf("Web server shutdown error: %v", err)
		}
	}

	// Stop core engine
	if d.coreEngine != nil {
		if err := d.coreEngine.Stop(); err != nil {
			log.Printf("Core engine shutdown error: %v", err)
		}
	}

	// Wait for goroutines to finish
	d.wg.Wait()

	log.Printf("Daemon stopped")
	return nil
}

// setupWebServer initializes the web server and routes
func (d *HidesDaemon) setupWebServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/", d.handleRoot)

	// API routes
	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.GET("/devices", d.handleGetDevices)
		api.GET("/devices/:index", d.handleGetDeviceInfo)
		api.POST("/transmission", d.handleStartTransmission)
		api.DELETE("/transmission", d.handleStopTransmission)
		api.GET("/gain", d.handleGetGain)
		api.PUT("/gain", d.handleSetGain)
		api.GET("/gain/range", d.handleGetGainRange)
		api.GET("/sessions", d.handleGetSessions)
		api.GET("/stats", d.handleGetStats)
	}

	// Live status stream
	router.GET("/ws", d.handleStatusWebSocket)

	addr := fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port)
	d.webServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return nil
}
