// Package engine is the daemon core: it owns the modulator handle, the
// session log, and the Unix control socket, and runs the transmit loop
// that feeds transport stream bursts to the device.
package engine

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dvbtx/hidesd/pkg/config"
	"github.com/dvbtx/hidesd/pkg/dvbt"
	"github.com/dvbtx/hidesd/pkg/hides"
	"github.com/dvbtx/hidesd/pkg/logging"
	"github.com/dvbtx/hidesd/pkg/mpegts"
	"github.com/dvbtx/hidesd/pkg/protocol"
	"github.com/dvbtx/hidesd/pkg/storage"
)

// Version is reported by the VERSION command and in status responses.
const Version = "0.1.0"

// defaultSessionLimit caps a SESSIONS query that names no limit.
const defaultSessionLimit = 20

// CoreEngine drives one modulator. A Device handle is single-caller, so
// every device operation, from command handlers and from the transmit
// loop, goes through devMutex.
type CoreEngine struct {
	config     *config.Config
	socketPath string
	listener   net.Listener
	running    bool
	mutex      sync.RWMutex
	startTime  time.Time

	rep      hides.Reporter
	device   *hides.Device
	devMutex sync.Mutex

	store *storage.SessionStore

	// The active transmission, nil when idle. Guarded by mutex.
	tx *transmission
}

// transmission tracks one transmit loop from START until its session
// row is closed. id and file are set before the loop starts and are
// immutable afterwards.
type transmission struct {
	id        int64
	file      string
	startedAt time.Time
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

func (t *transmission) requestStop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// NewCoreEngine creates a new core engine. The device handle is created
// closed; Start opens it.
func NewCoreEngine(cfg *config.Config, socketPath string) *CoreEngine {
	rep := logging.GetGlobalLogger().Component("hides")

	var device *hides.Device
	if cfg.Device.Mock {
		device = hides.NewMockDevice(rep, hides.NewMockBackend())
	} else {
		device = hides.NewDevice(rep)
	}

	return &CoreEngine{
		config:     cfg,
		socketPath: socketPath,
		startTime:  time.Now(),
		rep:        rep,
		device:     device,
	}
}

// Start opens and tunes the modulator, opens the session log, and
// brings up the Unix socket server.
func (e *CoreEngine) Start() error {
	if err := e.openDevice(); err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}

	params, err := e.config.TuneParameters()
	if err != nil {
		e.device.Close()
		return err
	}

	e.devMutex.Lock()
	err = e.device.Tune(params)
	if err == nil && e.config.Channel.Gain != nil {
		_, err = e.device.SetGain(*e.config.Channel.Gain)
	}
	e.devMutex.Unlock()
	if err != nil {
		e.device.Close()
		return fmt.Errorf("failed to tune channel: %w", err)
	}
	logging.Infof("engine", "%s tuned: %s", e.config.DeviceLabel(), params)

	store, err := storage.NewSessionStore(e.config.Storage.DatabasePath, e.config.Storage.MaxSessions)
	if err != nil {
		e.device.Close()
		return err
	}
	e.store = store

	// Sessions an earlier daemon instance left open never got their
	// final row; flag them so the log stays honest.
	if n, err := store.MarkInterrupted(); err != nil {
		logging.Warnf("engine", "failed to mark interrupted sessions: %v", err)
	} else if n > 0 {
		logging.Warnf("engine", "marked %d sessions from a previous run as interrupted", n)
	}

	// Remove existing socket file
	os.Remove(e.socketPath)

	listener, err := net.Listen("unix", e.socketPath)
	if err != nil {
		e.store.Close()
		e.device.Close()
		return fmt.Errorf("failed to create Unix socket: %w", err)
	}
	e.listener = listener

	// Set socket permissions (readable/writable by owner and group)
	if err := os.Chmod(e.socketPath, 0660); err != nil {
		logging.Warnf("engine", "failed to set socket permissions: %v", err)
	}

	e.mutex.Lock()
	e.running = true
	e.mutex.Unlock()

	logging.Infof("engine", "core engine listening on %s", e.socketPath)

	go e.acceptConnections()

	return nil
}

// openDevice opens the configured modulator: an explicit path wins,
// otherwise the enumerated index. Mock mode opens a simulated node.
func (e *CoreEngine) openDevice() error {
	path := e.config.Device.Path
	if e.config.Device.Mock {
		if path == "" {
			path = "/dev/usb-it9507x0"
		}
		return e.device.OpenPath(path)
	}
	if path != "" {
		return e.device.OpenPath(path)
	}
	return e.device.OpenIndex(e.config.Device.Index)
}

// Stop ends any running transmission, closes the socket, and releases
// the modulator and the session log.
func (e *CoreEngine) Stop() error {
	e.mutex.Lock()
	e.running = false
	tx := e.tx
	e.mutex.Unlock()

	if tx != nil {
		tx.requestStop()
		<-tx.done
	}

	if e.listener != nil {
		e.listener.Close()
	}

	e.devMutex.Lock()
	e.device.Close()
	e.devMutex.Unlock()

	if e.store != nil {
		e.store.Close()
	}

	// Clean up socket file
	os.Remove(e.socketPath)

	return nil
}

// StartTransmission starts streaming the given file. An empty file
// falls back to the configured input. Only one transmission runs at a
// time.
func (e *CoreEngine) StartTransmission(file string) error {
	_, err := e.startTransmission(file)
	return err
}

func (e *CoreEngine) startTransmission(file string) (*transmission, error) {
	if file == "" {
		file = e.config.Input.File
	}
	if file == "" {
		return nil, fmt.Errorf("no input file configured")
	}

	e.mutex.Lock()
	if e.tx != nil {
		e.mutex.Unlock()
		return nil, fmt.Errorf("already transmitting")
	}
	tx := &transmission{
		file:      file,
		startedAt: time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	e.tx = tx
	e.mutex.Unlock()

	input, err := os.Open(file)
	if err != nil {
		e.abortTransmission(tx)
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	e.devMutex.Lock()
	err = e.device.StartTransmission()
	e.devMutex.Unlock()
	if err != nil {
		input.Close()
		e.abortTransmission(tx)
		return nil, fmt.Errorf("failed to start transmission: %w", err)
	}

	// The session row opens as running; the transmit loop closes it.
	id, err := e.store.BeginSession(protocol.Session{
		StartedAt:        tx.startedAt,
		Device:           e.config.DeviceLabel(),
		InputFile:        file,
		Frequency:        e.config.Channel.Frequency,
		Bandwidth:        e.config.Channel.Bandwidth,
		Constellation:    e.config.Channel.Constellation,
		CodeRate:         e.config.Channel.CodeRate,
		GuardInterval:    e.config.Channel.GuardInterval,
		TransmissionMode: e.config.Channel.TransmissionMode,
		Bitrate:          e.device.Bitrate(),
	})
	if err != nil {
		logging.Warnf("engine", "failed to record session start: %v", err)
	}
	tx.id = id

	var reader *mpegts.Reader
	if e.config.Input.Loop {
		reader = mpegts.NewLoopReader(input)
	} else {
		reader = mpegts.NewReader(input)
	}

	logging.Infof("engine", "transmission started: %s at %d b/s", file, e.device.Bitrate())

	go e.transmitLoop(tx, input, reader)

	return tx, nil
}

// abortTransmission releases a reserved transmission slot that never
// reached the transmit loop.
func (e *CoreEngine) abortTransmission(tx *transmission) {
	e.mutex.Lock()
	e.tx = nil
	e.mutex.Unlock()
	close(tx.done)
}

// StopTransmission asks the transmit loop to stop and waits until its
// session row is written.
func (e *CoreEngine) StopTransmission() error {
	e.mutex.RLock()
	tx := e.tx
	e.mutex.RUnlock()

	if tx == nil {
		return fmt.Errorf("not transmitting")
	}
	tx.requestStop()
	<-tx.done
	return nil
}

// transmitLoop owns the input handle, pumps bursts into the device
// until the stream ends, and writes the session's final row before
// signalling done.
func (e *CoreEngine) transmitLoop(tx *transmission, input *os.File, reader *mpegts.Reader) {
	defer input.Close()

	result := e.pump(tx, reader)

	e.devMutex.Lock()
	stats := e.device.Stats()
	if e.device.Transmitting() {
		if err := e.device.StopTransmission(); err != nil {
			logging.Warnf("engine", "failed to stop transmission: %v", err)
		}
	}
	e.devMutex.Unlock()

	packets := stats.BytesSent / mpegts.PacketSize
	if err := e.store.EndSession(tx.id, time.Now(), stats.BytesSent, packets, stats.Writes, stats.FailedWrites, result); err != nil {
		logging.Warnf("engine", "failed to record session end: %v", err)
	}

	logging.Infof("engine", "transmission %s: %s, %d bytes in %d writes (%d failed)",
		result, tx.file, stats.BytesSent, stats.Writes, stats.FailedWrites)

	e.mutex.Lock()
	e.tx = nil
	e.mutex.Unlock()
	close(tx.done)
}

// pump streams bursts until the source drains, a stop is requested, or
// the device gives up, and names how the session ended. Stop requests
// are observed between bursts.
func (e *CoreEngine) pump(tx *transmission, reader *mpegts.Reader) string {
	pool := mpegts.NewBurstPool(hides.MaxBurstPackets)

	for {
		select {
		case <-tx.stop:
			return storage.ResultStopped
		default:
		}

		buf := pool.Get()
		n, err := reader.ReadBurst(buf.Data)
		if err != nil {
			buf.Release()
			if err == io.EOF {
				return storage.ResultCompleted
			}
			logging.Errorf("engine", "input read failed: %v", err)
			return storage.ResultFailed
		}

		e.devMutex.Lock()
		err = e.device.Send(buf.Data[:n])
		e.devMutex.Unlock()
		buf.Release()
		if err != nil {
			logging.Errorf("engine", "burst send failed: %v", err)
			return storage.ResultFailed
		}
	}
}

// isRunning safely checks if the engine is running
func (e *CoreEngine) isRunning() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.running
}

// acceptConnections accepts and handles socket connections
func (e *CoreEngine) acceptConnections() {
	for e.isRunning() {
		conn, err := e.listener.Accept()
		if err != nil {
			if e.isRunning() {
				logging.Errorf("engine", "socket accept error: %v", err)
			}
			continue
		}

		go e.handleConnection(conn)
	}
}

// handleConnection handles a single socket connection
func (e *CoreEngine) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			response := protocol.NewErrorResponse(fmt.Sprintf("parse error: %v", err))
			conn.Write([]byte(response.String() + "\n"))
			continue
		}

		response := e.handleCommand(cmd)
		conn.Write([]byte(response.String() + "\n"))

		// Close connection after QUIT command
		if cmd.Type == protocol.CmdQuit {
			break
		}
	}
}

// handleCommand processes a single command
func (e *CoreEngine) handleCommand(cmd *protocol.Command) *protocol.Response {
	switch cmd.Type {
	case protocol.CmdStatus:
		return e.handleStatus()

	case protocol.CmdDevices:
		return e.handleDevices()

	case protocol.CmdInfo:
		return e.handleInfo(cmd)

	case protocol.CmdStart:
		return e.handleStart(cmd)

	case protocol.CmdStop:
		return e.handleStop()

	case protocol.CmdGain:
		return e.handleGain(cmd)

	case protocol.CmdGainRange:
		return e.handleGainRange(cmd)

	case protocol.CmdSessions:
		return e.handleSessions(cmd)

	case protocol.CmdStats:
		return e.handleStats()

	case protocol.CmdPing:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"pong": time.Now().Unix(),
		})

	case protocol.CmdVersion:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"version": Version,
		})

	case protocol.CmdQuit:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"message": "goodbye",
		})

	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown command: %s", cmd.Type))
	}
}

// handleStatus returns daemon and transmission state in one snapshot
func (e *CoreEngine) handleStatus() *protocol.Response {
	e.mutex.RLock()
	tx := e.tx
	startTime := e.startTime
	e.mutex.RUnlock()

	e.devMutex.Lock()
	stats := e.device.Stats()
	connected := e.device.IsOpen()
	e.devMutex.Unlock()

	status := protocol.Status{
		Device:       e.config.DeviceLabel(),
		Connected:    connected,
		Transmitting: stats.Transmitting,
		Frequency:    e.config.Channel.Frequency,
		Bitrate:      stats.Bitrate,
		BytesSent:    stats.BytesSent,
		Writes:       stats.Writes,
		FailedWrites: stats.FailedWrites,
		Uptime:       time.Since(startTime).String(),
		StartTime:    startTime,
		Version:      Version,
	}
	if tx != nil {
		status.InputFile = tx.file
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"status": status,
	})
}

// handleDevices lists the transmitter devices present on the host. Mock
// mode reports the one simulated device.
func (e *CoreEngine) handleDevices() *protocol.Response {
	if e.config.Device.Mock {
		e.devMutex.Lock()
		info := e.device.Info()
		e.devMutex.Unlock()
		return protocol.NewSuccessResponse(map[string]interface{}{
			"devices": []hides.DeviceInfo{info},
			"count":   1,
		})
	}

	devices, err := hides.ListDevices(e.rep)
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("device scan failed: %v", err))
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleInfo reports the identity of one device by index. The open
// handle answers for its own device; anything else is opened
// transiently.
func (e *CoreEngine) handleInfo(cmd *protocol.Command) *protocol.Response {
	index := 0
	if v, ok := cmd.Args["index"].(string); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return protocol.NewErrorResponse(fmt.Sprintf("bad device index %q", v))
		}
		index = n
	}

	e.devMutex.Lock()
	open := e.device.IsOpen()
	info := e.device.Info()
	e.devMutex.Unlock()

	if open && (e.config.Device.Mock || info.Index == index) {
		return protocol.NewSuccessResponse(map[string]interface{}{
			"device": info,
		})
	}

	dev := hides.NewDevice(e.rep)
	if err := dev.OpenIndex(index); err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to open device %d: %v", index, err))
	}
	info = dev.Info()
	dev.Close()

	return protocol.NewSuccessResponse(map[string]interface{}{
		"device": info,
	})
}

// handleStart starts a transmission
func (e *CoreEngine) handleStart(cmd *protocol.Command) *protocol.Response {
	file, _ := cmd.Args["file"].(string)

	tx, err := e.startTransmission(file)
	if err != nil {
		return protocol.NewErrorResponse(err.Error())
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"status":     "transmitting",
		"file":       tx.file,
		"session_id": tx.id,
	})
}

// handleStop stops the running transmission
func (e *CoreEngine) handleStop() *protocol.Response {
	if err := e.StopTransmission(); err != nil {
		return protocol.NewErrorResponse(err.Error())
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"status": "stopped",
	})
}

// handleGain gets or sets the output gain. A set reports the value the
// hardware actually applied, which may be clamped.
func (e *CoreEngine) handleGain(cmd *protocol.Command) *protocol.Response {
	action, _ := cmd.Args["action"].(string)

	switch action {
	case "", "get":
		e.devMutex.Lock()
		gain, err := e.device.GetGain()
		e.devMutex.Unlock()
		if err != nil {
			return protocol.NewErrorResponse(fmt.Sprintf("failed to read gain: %v", err))
		}
		return protocol.NewSuccessResponse(map[string]interface{}{
			"gain": gain,
		})

	case "set":
		value, _ := cmd.Args["value"].(string)
		want, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return protocol.NewErrorResponse(fmt.Sprintf("bad gain value %q", value))
		}
		e.devMutex.Lock()
		got, err := e.device.SetGain(want)
		e.devMutex.Unlock()
		if err != nil {
			return protocol.NewErrorResponse(fmt.Sprintf("failed to set gain: %v", err))
		}
		if got != want {
			logging.Warnf("engine", "gain %d dB clamped to %d dB", want, got)
		}
		return protocol.NewSuccessResponse(map[string]interface{}{
			"gain": got,
		})

	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown gain action: %s", action))
	}
}

// handleGainRange reports the gain adjustment range at a frequency and
// bandwidth, defaulting to the configured channel.
func (e *CoreEngine) handleGainRange(cmd *protocol.Command) *protocol.Response {
	frequency := e.config.Channel.Frequency
	bandwidth := e.config.Channel.Bandwidth

	if v, ok := cmd.Args["frequency"].(string); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return protocol.NewErrorResponse(fmt.Sprintf("bad frequency %q", v))
		}
		frequency = n
	}
	if v, ok := cmd.Args["bandwidth"].(string); ok && strings.TrimSpace(v) != "" {
		bandwidth = strings.TrimSpace(v)
	}

	bw, err := dvbt.ParseBandwidth(bandwidth)
	if err != nil {
		return protocol.NewErrorResponse(err.Error())
	}

	e.devMutex.Lock()
	min, max, err := e.device.GainRange(frequency, bw)
	e.devMutex.Unlock()
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to read gain range: %v", err))
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"frequency": frequency,
		"bandwidth": bw.String(),
		"min_gain":  min,
		"max_gain":  max,
	})
}

// handleSessions returns recent session rows, newest first
func (e *CoreEngine) handleSessions(cmd *protocol.Command) *protocol.Response {
	limit := defaultSessionLimit
	if v, ok := cmd.Args["limit"].(string); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return protocol.NewErrorResponse(fmt.Sprintf("bad session limit %q", v))
		}
		limit = n
	}

	sessions, err := e.store.GetRecentSessions(limit)
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to query sessions: %v", err))
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// handleStats reports session log totals alongside the live counters
func (e *CoreEngine) handleStats() *protocol.Response {
	totals, err := e.store.GetSessionStats()
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to query stats: %v", err))
	}
	stored, err := e.store.GetSessionCount()
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to query stats: %v", err))
	}

	e.devMutex.Lock()
	current := e.device.Stats()
	e.devMutex.Unlock()

	return protocol.NewSuccessResponse(map[string]interface{}{
		"totals":  totals,
		"stored":  stored,
		"current": current,
	})
}
