package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/dvbtx/hidesd/pkg/hides"
	"github.com/dvbtx/hidesd/pkg/protocol"
)

// SocketClient represents a client connection to the core engine
type SocketClient struct {
	socketPath string
	timeout    time.Duration
}

// NewSocketClient creates a new socket client
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SendCommand sends a command and returns the response
func (c *SocketClient) SendCommand(cmd string) (*protocol.Response, error) {
	// Connect to Unix socket
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	// Set read/write timeout
	conn.SetDeadline(time.Now().Add(c.timeout))

	// Send command
	_, err = conn.Write([]byte(cmd + "\n"))
	if err != nil {
		return nil, fmt.Errorf("send error: %w", err)
	}

	// Read response
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return nil, fmt.Errorf("no response received")
	}

	responseText := scanner.Text()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	// Parse JSON response
	var response protocol.Response
	if err := json.Unmarshal([]byte(responseText), &response); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &response, nil
}

// decodeField re-marshals one response data field into a typed value.
func decodeField(resp *protocol.Response, key string, out interface{}) error {
	data, ok := resp.Data[key]
	if !ok {
		return fmt.Errorf("%s not found in response", key)
	}

	raw, _ := json.Marshal(data)
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return nil
}

// intField reads one numeric response data field.
func intField(resp *protocol.Response, key string) (int, error) {
	value, ok := resp.Data[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%s not found in response", key)
	}
	return int(value), nil
}

// GetStatus gets the current daemon status
func (c *SocketClient) GetStatus() (*protocol.Status, error) {
	resp, err := c.SendCommand(protocol.CmdStatus)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("status error: %s", resp.Error)
	}

	var status protocol.Status
	if err := decodeField(resp, "status", &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// ListDevices enumerates the modulators visible to the daemon
func (c *SocketClient) ListDevices() ([]hides.DeviceInfo, error) {
	resp, err := c.SendCommand(protocol.CmdDevices)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("devices error: %s", resp.Error)
	}

	if _, ok := resp.Data["devices"]; !ok {
		return []hides.DeviceInfo{}, nil
	}

	var devices []hides.DeviceInfo
	if err := decodeField(resp, "devices", &devices); err != nil {
		return nil, err
	}

	return devices, nil
}

// GetDeviceInfo fetches identification for one device by index
func (c *SocketClient) GetDeviceInfo(index int) (*hides.DeviceInfo, error) {
	resp, err := c.SendCommand(fmt.Sprintf("%s:%d", protocol.CmdInfo, index))
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("info error: %s", resp.Error)
	}

	var info hides.DeviceInfo
	if err := decodeField(resp, "device", &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// StartTransmission starts streaming the given file, or the configured
// input when file is empty
func (c *SocketClient) StartTransmission(file string) error {
	cmd := protocol.CmdStart
	if file != "" {
		cmd = fmt.Sprintf("%s:%s", protocol.CmdStart, file)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("start error: %s", resp.Error)
	}

	return nil
}

// StopTransmission stops the current transmission
func (c *SocketClient) StopTransmission() error {
	resp, err := c.SendCommand(protocol.CmdStop)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("stop error: %s", resp.Error)
	}

	return nil
}

// SetGain adjusts output gain and returns the value the hardware settled on
func (c *SocketClient) SetGain(gain int) (int, error) {
	resp, err := c.SendCommand(fmt.Sprintf("%s:set:%d", protocol.CmdGain, gain))
	if err != nil {
		return 0, err
	}

	if !resp.Success {
		return 0, fmt.Errorf("gain error: %s", resp.Error)
	}

	return intField(resp, "gain")
}

// GetGain reads the current output gain
func (c *SocketClient) GetGain() (int, error) {
	resp, err := c.SendCommand(protocol.CmdGain + ":get")
	if err != nil {
		return 0, err
	}

	if !resp.Success {
		return 0, fmt.Errorf("gain error: %s", resp.Error)
	}

	return intField(resp, "gain")
}

// GetGainRange reads the gain limits for a channel. Zero frequency asks
// for the configured channel.
func (c *SocketClient) GetGainRange(frequency uint64, bandwidth string) (min, max int, err error) {
	cmd := protocol.CmdGainRange
	if frequency > 0 {
		cmd = fmt.Sprintf("%s:%d:%s", protocol.CmdGainRange, frequency, bandwidth)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return 0, 0, err
	}

	if !resp.Success {
		return 0, 0, fmt.Errorf("gain range error: %s", resp.Error)
	}

	if min, err = intField(resp, "min_gain"); err != nil {
		return 0, 0, err
	}
	if max, err = intField(resp, "max_gain"); err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

// GetSessions gets recent transmission sessions
func (c *SocketClient) GetSessions(limit int) ([]protocol.Session, error) {
	cmd := protocol.CmdSessions
	if limit > 0 {
		cmd = fmt.Sprintf("%s:%d", protocol.CmdSessions, limit)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("sessions error: %s", resp.Error)
	}

	if _, ok := resp.Data["sessions"]; !ok {
		return []protocol.Session{}, nil
	}

	var sessions []protocol.Session
	if err := decodeField(resp, "sessions", &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

// GetStats gets session log totals
func (c *SocketClient) GetStats() (map[string]interface{}, error) {
	resp, err := c.SendCommand(protocol.CmdStats)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("stats error: %s", resp.Error)
	}

	return resp.Data, nil
}

// GetVersion reads the daemon version
func (c *SocketClient) GetVersion() (string, error) {
	resp, err := c.SendCommand(protocol.CmdVersion)
	if err != nil {
		return "", err
	}

	if !resp.Success {
		return "", fmt.Errorf("version error: %s", resp.Error)
	}

	version, ok := resp.Data["version"].(string)
	if !ok {
		return "", fmt.Errorf("version not found in response")
	}
	return version, nil
}

// Ping tests the connection
func (c *SocketClient) Ping() error {
	resp, err := c.SendCommand(protocol.CmdPing)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("ping error: %s", resp.Error)
	}

	return nil
}

// IsConnected tests if the daemon is reachable
func (c *SocketClient) IsConnected() bool {
	return c.Ping() == nil
}
