package protocol

import (
	"encoding/json"
	"strings"
	"time"
)

// Command represents a command sent to the core engine
type Command struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Response represents a response from the core engine
type Response struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Session represents one transmission session, from START to the moment
// the stream ends, is stopped, or fails
type Session struct {
	ID               int64     `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at"`
	Device           string    `json:"device"`
	InputFile        string    `json:"input_file"`
	Frequency        uint64    `json:"frequency"`
	Bandwidth        string    `json:"bandwidth"`
	Constellation    string    `json:"constellation"`
	CodeRate         string    `json:"code_rate"`
	GuardInterval    string    `json:"guard_interval"`
	TransmissionMode string    `json:"transmission_mode"`
	Bitrate          uint64    `json:"bitrate"`
	BytesSent        uint64    `json:"bytes_sent"`
	Packets          uint64    `json:"packets"`
	Writes           uint64    `json:"writes"`
	FailedWrites     uint64    `json:"failed_writes"`
	Result           string    `json:"result"`
}

// Status represents the current daemon status
type Status struct {
	Device       string    `json:"device"`
	Connected    bool      `json:"connected"`
	Transmitting bool      `json:"transmitting"`
	InputFile    string    `json:"input_file"`
	Frequency    uint64    `json:"frequency"`
	Bitrate      uint64    `json:"bitrate"`
	BytesSent    uint64    `json:"bytes_sent"`
	Writes       uint64    `json:"writes"`
	FailedWrites uint64    `json:"failed_writes"`
	Uptime       string    `json:"uptime"`
	StartTime    time.Time `json:"start_time"`
	Version      string    `json:"version"`
}

// ParseCommand parses a text command into a Command struct
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	parts := strings.SplitN(text, ":", 2)

	cmd := &Command{
		Type: strings.ToUpper(parts[0]),
		Args: make(map[string]interface{}),
	}

	if len(parts) > 1 {
		args := parts[1]

		switch cmd.Type {
		case CmdStart:
			// START:/srv/streams/mux.ts
			cmd.Args["file"] = strings.TrimSpace(args)

		case CmdInfo:
			// INFO:0
			cmd.Args["index"] = args

		case CmdGain:
			// GAIN:set:-3 or GAIN:get
			gainParts := strings.SplitN(args, ":", 2)
			if len(gainParts) >= 1 {
				cmd.Args["action"] = strings.ToLower(gainParts[0])
			}
			if len(gainParts) >= 2 {
				cmd.Args["value"] = gainParts[1]
			}

		case CmdGainRange:
			// GAINRANGE:474000000:8-MHz
			rangeParts := strings.SplitN(args, ":", 2)
			if len(rangeParts) >= 1 {
				cmd.Args["frequency"] = rangeParts[0]
			}
			if len(rangeParts) >= 2 {
				cmd.Args["bandwidth"] = rangeParts[1]
			}

		case CmdSessions:
			// SESSIONS:10
			cmd.Args["limit"] = args
		}
	}

	return cmd, nil
}

// FormatResponse converts a Response to JSON string
func (r *Response) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data map[string]interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// Protocol commands
const (
	CmdStatus    = "STATUS"
	CmdDevices   = "DEVICES"
	CmdInfo      = "INFO"
	CmdStart     = "START"
	CmdStop      = "STOP"
	CmdGain      = "GAIN"
	CmdGainRange = "GAINRANGE"
	CmdSessions  = "SESSIONS"
	CmdStats     = "STATS"
	CmdPing      = "PING"
	CmdVersion   = "VERSION"
	CmdQuit      = "QUIT"
)
