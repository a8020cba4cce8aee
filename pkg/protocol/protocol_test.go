package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseCommand(t *testing.T) {
	t.Run("STATUS Command", func(t *testing.T) {
		cmd, err := ParseCommand("STATUS")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "STATUS" {
			t.Errorf("Expected type STATUS, got %s", cmd.Type)
		}
		if len(cmd.Args) != 0 {
			t.Errorf("Expected no args for STATUS, got %d", len(cmd.Args))
		}
	})

	t.Run("START Command with File", func(t *testing.T) {
		cmd, err := ParseCommand("START:/srv/streams/mux.ts")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "START" {
			t.Errorf("Expected type START, got %s", cmd.Type)
		}
		if cmd.Args["file"] != "/srv/streams/mux.ts" {
			t.Errorf("Expected file /srv/streams/mux.ts, got %v", cmd.Args["file"])
		}
	})

	t.Run("START Command Without File", func(t *testing.T) {
		cmd, err := ParseCommand("START")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "START" {
			t.Errorf("Expected type START, got %s", cmd.Type)
		}
		// No file argument means the configured input is used
		if _, exists := cmd.Args["file"]; exists {
			t.Errorf("Expected no file arg, got %v", cmd.Args["file"])
		}
	})

	t.Run("INFO Command", func(t *testing.T) {
		cmd, err := ParseCommand("INFO:2")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "INFO" {
			t.Errorf("Expected type INFO, got %s", cmd.Type)
		}
		if cmd.Args["index"] != "2" {
			t.Errorf("Expected index 2, got %v", cmd.Args["index"])
		}
	})

	t.Run("GAIN Command Set", func(t *testing.T) {
		cmd, err := ParseCommand("GAIN:set:-3")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "GAIN" {
			t.Errorf("Expected type GAIN, got %s", cmd.Type)
		}
		if cmd.Args["action"] != "set" {
			t.Errorf("Expected action set, got %v", cmd.Args["action"])
		}
		if cmd.Args["value"] != "-3" {
			t.Errorf("Expected value -3, got %v", cmd.Args["value"])
		}
	})

	t.Run("GAIN Command Get", func(t *testing.T) {
		cmd, err := ParseCommand("GAIN:get")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Args["action"] != "get" {
			t.Errorf("Expected action get, got %v", cmd.Args["action"])
		}
		if _, exists := cmd.Args["value"]; exists {
			t.Errorf("Expected no value for get command, got %v", cmd.Args["value"])
		}
	})

	t.Run("GAINRANGE Command with Channel", func(t *testing.T) {
		cmd, err := ParseCommand("GAINRANGE:474000000:8-MHz")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "GAINRANGE" {
			t.Errorf("Expected type GAINRANGE, got %s", cmd.Type)
		}
		if cmd.Args["frequency"] != "474000000" {
			t.Errorf("Expected frequency 474000000, got %v", cmd.Args["frequency"])
		}
		if cmd.Args["bandwidth"] != "8-MHz" {
			t.Errorf("Expected bandwidth 8-MHz, got %v", cmd.Args["bandwidth"])
		}
	})

	t.Run("GAINRANGE Command Bare", func(t *testing.T) {
		cmd, err := ParseCommand("GAINRANGE")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(cmd.Args) != 0 {
			t.Errorf("Expected no args for bare GAINRANGE, got %d", len(cmd.Args))
		}
	})

	t.Run("SESSIONS Command with Limit", func(t *testing.T) {
		cmd, err := ParseCommand("SESSIONS:10")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "SESSIONS" {
			t.Errorf("Expected type SESSIONS, got %s", cmd.Type)
		}
		if cmd.Args["limit"] != "10" {
			t.Errorf("Expected limit 10, got %v", cmd.Args["limit"])
		}
	})

	t.Run("Simple Commands", func(t *testing.T) {
		commands := []string{"STOP", "DEVICES", "STATS", "PING", "VERSION", "QUIT"}
		for _, cmdText := range commands {
			t.Run(cmdText, func(t *testing.T) {
				cmd, err := ParseCommand(cmdText)
				if err != nil {
					t.Fatalf("Expected no error for %s, got: %v", cmdText, err)
				}
				if cmd.Type != cmdText {
					t.Errorf("Expected type %s, got %s", cmdText, cmd.Type)
				}
				if len(cmd.Args) != 0 {
					t.Errorf("Expected no args for %s, got %d", cmdText, len(cmd.Args))
				}
			})
		}
	})

	t.Run("Case Insensitive", func(t *testing.T) {
		cmd, err := ParseCommand("status")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Type != "STATUS" {
			t.Errorf("Expected uppercase STATUS, got %s", cmd.Type)
		}
	})

	t.Run("Whitespace Handling", func(t *testing.T) {
		cmd, err := ParseCommand("  PING  ")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Type != "PING" {
			t.Errorf("Expected type PING, got %s", cmd.Type)
		}
	})

	t.Run("Unknown Command", func(t *testing.T) {
		cmd, err := ParseCommand("REWIND:5")
		if err != nil {
			t.Fatalf("Expected no error for unknown command, got: %v", err)
		}
		if cmd.Type != "REWIND" {
			t.Errorf("Expected type REWIND, got %s", cmd.Type)
		}
		// Unknown commands should not parse args specially
		if len(cmd.Args) != 0 {
			t.Errorf("Expected no args for unknown command, got %d", len(cmd.Args))
		}
	})

	t.Run("Empty Command", func(t *testing.T) {
		cmd, err := ParseCommand("")
		if err != nil {
			t.Fatalf("Expected no error for empty command, got: %v", err)
		}
		if cmd.Type != "" {
			t.Errorf("Expected empty type, got %s", cmd.Type)
		}
	})
}

func TestResponse(t *testing.T) {
	t.Run("Success Response JSON", func(t *testing.T) {
		data := map[string]interface{}{
			"device":       "/dev/usb-it9507x0",
			"bitrate":      19905882,
			"transmitting": true,
		}
		resp := NewSuccessResponse(data)

		if !resp.Success {
			t.Error("Expected success to be true")
		}
		if resp.Error != "" {
			t.Errorf("Expected no error, got %s", resp.Error)
		}

		jsonStr := resp.String()
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Failed to parse JSON: %v", err)
		}

		if parsed["success"] != true {
			t.Error("Expected success true in JSON")
		}
		if parsed["data"] == nil {
			t.Error("Expected data in JSON")
		}
	})

	t.Run("Error Response JSON", func(t *testing.T) {
		resp := NewErrorResponse("device not open")

		if resp.Success {
			t.Error("Expected success to be false")
		}
		if resp.Error != "device not open" {
			t.Errorf("Expected error 'device not open', got %s", resp.Error)
		}
		if resp.Data != nil {
			t.Errorf("Expected no data for error response, got %v", resp.Data)
		}

		jsonStr := resp.String()
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Failed to parse JSON: %v", err)
		}

		if parsed["success"] != false {
			t.Error("Expected success false in JSON")
		}
		if parsed["error"] != "device not open" {
			t.Errorf("Expected error in JSON, got %v", parsed["error"])
		}
	})

	t.Run("Empty Success Response", func(t *testing.T) {
		resp := NewSuccessResponse(nil)
		jsonStr := resp.String()

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Failed to parse JSON: %v", err)
		}

		if parsed["success"] != true {
			t.Error("Expected success true in JSON")
		}
	})
}

func TestSession(t *testing.T) {
	t.Run("Session JSON Serialization", func(t *testing.T) {
		started := time.Now().Add(-time.Minute)
		session := Session{
			ID:               7,
			StartedAt:        started,
			EndedAt:          started.Add(30 * time.Second),
			Device:           "/dev/usb-it9507x0",
			InputFile:        "/srv/streams/mux.ts",
			Frequency:        474000000,
			Bandwidth:        "8-MHz",
			Constellation:    "64-QAM",
			CodeRate:         "2/3",
			GuardInterval:    "1/4",
			TransmissionMode: "8K",
			Bitrate:          19905882,
			BytesSent:        32336000,
			Packets:          172000,
			Writes:           1000,
			FailedWrites:     3,
			Result:           "completed",
		}

		data, err := json.Marshal(session)
		if err != nil {
			t.Fatalf("Failed to marshal session: %v", err)
		}

		var parsed Session
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("Failed to unmarshal session: %v", err)
		}

		if parsed.ID != 7 {
			t.Errorf("Expected ID 7, got %d", parsed.ID)
		}
		if parsed.Frequency != 474000000 {
			t.Errorf("Expected frequency 474000000, got %d", parsed.Frequency)
		}
		if parsed.BytesSent != 32336000 {
			t.Errorf("Expected bytes sent 32336000, got %d", parsed.BytesSent)
		}
		if parsed.Result != "completed" {
			t.Errorf("Expected result completed, got %s", parsed.Result)
		}
	})
}

func TestStatus(t *testing.T) {
	t.Run("Status JSON Serialization", func(t *testing.T) {
		startTime := time.Now()
		status := Status{
			Device:       "/dev/usb-it9507x0",
			Connected:    true,
			Transmitting: true,
			InputFile:    "/srv/streams/mux.ts",
			Frequency:    474000000,
			Bitrate:      19905882,
			BytesSent:    188000,
			Writes:       6,
			Uptime:       "1h30m",
			StartTime:    startTime,
			Version:      "0.1.0",
		}

		data, err := json.Marshal(status)
		if err != nil {
			t.Fatalf("Failed to marshal status: %v", err)
		}

		var parsed Status
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("Failed to unmarshal status: %v", err)
		}

		if parsed.Device != "/dev/usb-it9507x0" {
			t.Errorf("Expected device /dev/usb-it9507x0, got %s", parsed.Device)
		}
		if !parsed.Connected {
			t.Error("Expected connected true")
		}
		if !parsed.Transmitting {
			t.Error("Expected transmitting true")
		}
		if parsed.Writes != 6 {
			t.Errorf("Expected 6 writes, got %d", parsed.Writes)
		}
	})
}

func TestConstants(t *testing.T) {
	// Test that all command constants are defined
	constants := map[string]string{
		"STATUS":    CmdStatus,
		"DEVICES":   CmdDevices,
		"INFO":      CmdInfo,
		"START":     CmdStart,
		"STOP":      CmdStop,
		"GAIN":      CmdGain,
		"GAINRANGE": CmdGainRange,
		"SESSIONS":  CmdSessions,
		"STATS":     CmdStats,
		"PING":      CmdPing,
		"VERSION":   CmdVersion,
		"QUIT":      CmdQuit,
	}

	for expected, constant := range constants {
		if constant != expected {
			t.Errorf("Expected constant %s to equal %s, got %s", expected, expected, constant)
		}
	}
}

func TestProtocolIntegration(t *testing.T) {
	// Test a complete protocol flow: parse command -> generate response -> serialize
	t.Run("Complete Flow", func(t *testing.T) {
		cmd, err := ParseCommand("START:/srv/streams/test.ts")
		if err != nil {
			t.Fatalf("Failed to parse command: %v", err)
		}

		responseData := map[string]interface{}{
			"status":  "transmitting",
			"file":    cmd.Args["file"],
			"bitrate": 19905882,
		}
		resp := NewSuccessResponse(responseData)

		jsonStr := resp.String()

		if !strings.Contains(jsonStr, "transmitting") {
			t.Error("Expected 'transmitting' in response JSON")
		}
		if !strings.Contains(jsonStr, "/srv/streams/test.ts") {
			t.Error("Expected input file in response JSON")
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Response is not valid JSON: %v", err)
		}
	})

	t.Run("Error Flow", func(t *testing.T) {
		resp := NewErrorResponse("tune failed: unsupported constellation 256-QAM")
		jsonStr := resp.String()

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Error response is not valid JSON: %v", err)
		}

		if parsed["success"] != false {
			t.Error("Expected success false for error response")
		}
		if !strings.Contains(parsed["error"].(string), "tune failed") {
			t.Error("Expected error message in response")
		}
	})
}
