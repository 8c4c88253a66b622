package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mattjoyce/excbridge/internal/config"
	"github.com/mattjoyce/excbridge/internal/protocol"
	"github.com/mattjoyce/excbridge/internal/transport"
)

type sendResult struct {
	Opcode string          `json:"opcode"`
	Status string          `json:"status,omitempty"`
	Code   *uint8          `json:"code,omitempty"`
	Value  *protocol.Value `json:"value,omitempty"`
	// Accepted marks commands that produce no reply.
	Accepted bool `json:"accepted,omitempty"`
}

func runSend(args []string) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	socketPath := fs.String("socket", "", "Control socket path (default: socket.path from --config)")
	configPath := fs.String("config", "", "Path to configuration file or directory")
	timeout := fs.Duration("timeout", 10*time.Second, "How long to wait for the reply")
	jsonOut := fs.Bool("json", false, "Print the reply as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(os.Stderr, "Usage: excbridge send [flags] <OPCODE> [arg]")
		return 1
	}

	op, err := protocol.ParseOpcode(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	arg := fs.Arg(1)

	path := *socketPath
	if path == "" {
		cfg, err := config.Load(resolveConfigFlag(*configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\nHint: pass --socket or --config\n", err)
			return 1
		}
		path = cfg.Socket.Path
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := transport.Dial(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = client.Close() }()

	res := sendResult{Opcode: op.String()}
	if !op.Known() || op.Reserved() {
		if err := client.Send(op, arg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		res.Accepted = true
	} else {
		r, err := client.Do(ctx, op, arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", op, err)
			return 1
		}
		code := uint8(r.Status)
		res.Status = r.Status.String()
		res.Code = &code
		res.Value = r.Value
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(data))
		return 0
	}
	switch {
	case res.Accepted:
		fmt.Printf("%s accepted (no reply)\n", res.Opcode)
	case res.Value != nil:
		fmt.Printf("%s %s %s\n", res.Opcode, res.Status, res.Value)
	default:
		fmt.Printf("%s %s\n", res.Opcode, res.Status)
	}
	return 0
}

func printSendHelp() {
	fmt.Println("Usage: excbridge send [flags] <OPCODE> [arg]")
	fmt.Println()
	fmt.Println("OPCODE is a protocol name (START, SET_CPS, ...) or numeric id.")
	fmt.Println("The reply status is printed; a non-OK status is not a CLI failure.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --socket <path>     Control socket path")
	fmt.Println("  --config <path>     Read socket.path from this config instead")
	fmt.Println("  --timeout <dur>     Reply timeout (default 10s)")
	fmt.Println("  --json              Print the reply as JSON")
	fmt.Println()
	fmt.Println("Opcodes:")
	for _, op := range protocol.Opcodes() {
		note := ""
		if op.Reserved() {
			note = " (reserved, no reply)"
		}
		fmt.Printf("  %2d  %s%s\n", uint8(op), op, note)
	}
}
