package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/excbridge/internal/auth"
	"github.com/mattjoyce/excbridge/internal/config"
	"github.com/mattjoyce/excbridge/internal/doctor"
	"github.com/mattjoyce/excbridge/internal/tui/tokenmgr"
)

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "lock":
		return runConfigLock(actionArgs)
	case "get":
		return runConfigGet(actionArgs)
	case "show":
		return runConfigShow(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func printConfigNounHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: excbridge config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, lock, get, show")
	fmt.Fprintln(w, "All actions take --config <path> (env EXCBRIDGE_CONFIG, default config.yaml).")
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(resolveConfigFlag(*configPath))
	var report *doctor.Result
	if err == nil {
		report = doctor.New(cfg).Validate()
	}

	if *jsonOut {
		result := map[string]any{"valid": err == nil && report.Valid}
		if err != nil {
			result["error"] = err.Error()
		} else {
			result["path"] = cfg.SourcePath
			result["fingerprint"] = cfg.Fingerprint
			result["errors"] = report.Errors
			result["warnings"] = report.Warnings
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		if err != nil || !report.Valid {
			return 1
		}
		return 0
	}

	if err != nil {
		if errors.Is(err, config.ErrChecksumMismatch) {
			fmt.Fprintln(os.Stderr, "Hint: run 'excbridge config lock' after reviewing the change.")
		}
		fmt.Fprintf(os.Stderr, "Configuration check FAILED: %v\n", err)
		return 1
	}
	if !report.Valid {
		fmt.Fprint(os.Stderr, doctor.FormatHuman(report))
		fmt.Fprintf(os.Stderr, "Configuration check FAILED: %s\n", cfg.SourcePath)
		return 1
	}
	fmt.Printf("Configuration check PASSED: %s\n", cfg.SourcePath)
	fmt.Printf("fingerprint: %s\n", cfg.Fingerprint)
	if len(report.Warnings) > 0 {
		fmt.Print(doctor.FormatHuman(report))
	}
	return 0
}

// runConfigLock validates the current file and pins it in the checksum
// sidecar, replacing any previous pin.
func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path, err := config.ResolvePath(resolveConfigFlag(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if _, err := config.ParseAs(raw, config.FormatFor(path)); err != nil {
		fmt.Fprintf(os.Stderr, "Refusing to lock invalid configuration: %v\n", err)
		return 1
	}

	hash, err := config.WriteChecksum(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Locked %s\n", path)
	fmt.Printf("checksum: %s -> %s\n", hash, config.ChecksumPath(path))
	return 0
}

func runConfigGet(args []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: excbridge config get [--config <path>] [--json] <path>")
		return 1
	}

	cfg, err := config.Load(resolveConfigFlag(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	val, err := cfg.GetPath(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(val, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("%v\n", val)
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	format := fs.String("format", "yaml", "Output format: yaml or toml")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(resolveConfigFlag(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	shown := redactTokens(*cfg)

	switch strings.ToLower(*format) {
	case "yaml", "yml":
		out, err := yaml.Marshal(shown)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Print(string(out))
	case "toml":
		if err := toml.NewEncoder(os.Stdout).Encode(shown); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown format %q (want yaml or toml)\n", *format)
		return 1
	}
	return 0
}

func redactTokens(cfg config.Config) config.Config {
	tokens := make([]config.APIToken, len(cfg.API.Tokens))
	for i, t := range cfg.API.Tokens {
		tokens[i] = config.APIToken{Token: "<redacted>", Scopes: t.Scopes}
	}
	cfg.API.Tokens = tokens
	if cfg.Events.ForwardSecret != "" {
		cfg.Events.ForwardSecret = "<redacted>"
	}
	return cfg
}

func runTokenNoun(args []string) int {
	if len(args) < 1 || isHelpToken(args[0]) {
		fmt.Println("Usage: excbridge token new [--scopes exc:ro,events:ro]")
		fmt.Println("Without --scopes an interactive picker is shown.")
		if len(args) < 1 {
			return 1
		}
		return 0
	}
	if args[0] != "new" {
		fmt.Fprintf(os.Stderr, "Unknown token action: %s\n", args[0])
		return 1
	}
	return runTokenNew(args[1:])
}

func runTokenNew(args []string) int {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	scopesFlag := fs.String("scopes", "", "Comma-separated scopes; omit for the interactive picker")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	var scopes []string
	if *scopesFlag != "" {
		for _, s := range strings.Split(*scopesFlag, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
	} else {
		final, err := tea.NewProgram(tokenmgr.New()).Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			return 1
		}
		picked, ok := final.(tokenmgr.Model).Selected()
		if !ok {
			return 1
		}
		scopes = picked
	}

	if err := validateScopes(scopes); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	token, err := generateToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	snippet, err := yaml.Marshal(map[string]any{
		"api": map[string]any{
			"tokens": []config.APIToken{{Token: token, Scopes: scopes}},
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println("# Add to config.yaml, then run 'excbridge config lock' if the config is pinned.")
	fmt.Print(string(snippet))
	return 0
}

func validateScopes(scopes []string) error {
	if len(scopes) == 0 {
		return errors.New("at least one scope is required")
	}
	for _, s := range scopes {
		if !auth.KnownScope(s) {
			return fmt.Errorf("unknown scope %q (known: %s)", s, strings.Join(auth.AllScopes, ", "))
		}
	}
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
