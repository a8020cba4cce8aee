package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dvbtx/hidesd/pkg/client"
)

var (
	socketPath = flag.String("socket", "/tmp/hidesd.sock", "Unix socket path")
	command    = flag.String("cmd", "", "Command to send (e.g., 'STATUS', 'START:capture.ts')")
)

func main() {
	flag.Parse()

	if *socketPath == "" {
		fmt.Fprintf(os.Stderr, "Socket path is required\n")
		os.Exit(1)
	}

	// If no command specified, show interactive help
	if *command == "" {
		if len(flag.Args()) > 0 {
			*command = strings.Join(flag.Args(), " ")
		} else {
			showHelp()
			return
		}
	}

	// Create socket client
	client := client.NewSocketClient(*socketPath)

	// Send command
	response, err := client.SendCommand(*command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Print response
	fmt.Printf("%s\n", response.String())
}

func showHelp() {
	fmt.Println("hidesctl - HiDes Modulator Daemon Control Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <command>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -socket <path>    Unix socket path (default: /tmp/hidesd.sock)")
	fmt.Println("  -cmd <command>    Command to send")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  STATUS                    Get daemon status")
	fmt.Println("  DEVICES                   List attached modulators")
	fmt.Println("  INFO:<index>              Get device identification")
	fmt.Println("  START:<file>              Start transmitting a TS file")
	fmt.Println("  START                     Start with the configured input file")
	fmt.Println("  STOP                      Stop the current transmission")
	fmt.Println("  GAIN                      Get output gain")
	fmt.Println("  GAIN:set:<dB>             Set output gain")
	fmt.Println("  GAINRANGE                 Get gain limits for the tuned channel")
	fmt.Println("  GAINRANGE:<freq>:<bw>     Get gain limits for a channel")
	fmt.Println("  SESSIONS:10               Get last 10 transmission sessions")
	fmt.Println("  STATS                     Get transmission statistics")
	fmt.Println("  PING                      Test connection")
	fmt.Println("  VERSION                   Get daemon version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s STATUS\n", os.Args[0])
	fmt.Printf("  %s 'START:/var/lib/hidesd/capture.ts'\n", os.Args[0])
	fmt.Printf("  %s SESSIONS:5\n", os.Args[0])
	fmt.Printf("  echo 'STATUS' | nc -U /tmp/hidesd.sock\n")
}
