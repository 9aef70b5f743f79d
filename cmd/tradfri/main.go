// Command tradfri talks to a Tradfri gateway from the command line.
//
// Usage:
//
//	tradfri [flags] <command> [args]
//	tradfri [flags] -interactive
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-host string          Gateway address
//	-psk-file string      Credential file (default "tradfri_psk.json")
//	-timeout duration     Per-request timeout (default 10s)
//	-retries int          Attempts per request when the gateway times out (default 3)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write a protocol capture to this file (.tlog)
//	-interactive          Start the interactive shell
//
// Commands:
//
//	provision <security-code>   Register a new identity and store its key
//	get <path>                  Read a resource
//	put <path> <json>           Write a resource
//	post <path> [json]          Submit to a resource
//	observe <path> [seconds]    Print updates of a resource
//	devices                     List devices
//	groups                      List groups
//	info                        Show gateway information
//	endpoints                   List the gateway's resources
//	light <id> on|off|dim N|temp N
//
// Examples:
//
//	# First run: exchange the code printed on the gateway for a key
//	tradfri -host 192.168.1.10 provision ABCDEFGHIJKLMNOP
//
//	# List devices
//	tradfri -host 192.168.1.10 devices
//
//	# Watch a bulb for five minutes with a protocol capture
//	tradfri -host 192.168.1.10 -protocol-log bulb.tlog observe 15001/65537 300
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tradfri-go/tradfri/pkg/api"
	tlog "github.com/tradfri-go/tradfri/pkg/log"
	"github.com/tradfri-go/tradfri/pkg/persistence"
	"github.com/tradfri-go/tradfri/pkg/session"
)

func main() {
	os.Exit(run())
}

// run returns the exit code; deferred cleanup flushes the protocol capture.
func run() int {
	fs := flag.NewFlagSet("tradfri", flag.ExitOnError)
	config, err := parseConfig(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(config.LogLevel)

	args := fs.Args()
	if len(args) == 0 && !config.Interactive {
		fs.Usage()
		return 2
	}

	var out io.Writer = os.Stdout
	var sh *shell
	if config.Interactive {
		sh, err = newShell()
		if err != nil {
			log.Fatalf("Failed to start shell: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		out = sh.Stdout()
		log.SetOutput(out)
	}

	store := persistence.NewCredentialStore(config.PSKFile)
	creds, ok, err := store.Load(config.Host)
	if err != nil {
		log.Fatalf("Failed to read credentials: %v", err)
	}
	if !ok && (len(args) == 0 || args[0] != "provision") {
		log.Printf("No credentials for %s in %s; run 'provision <security-code>' first", config.Host, config.PSKFile)
	}

	sessCfg := session.DefaultConfig()
	sessCfg.Host = config.Host
	sessCfg.Identity = creds.Identity
	sessCfg.PSK = creds.Key
	sessCfg.Timeout = config.Timeout
	sessCfg.Logger = newSlogLogger(config.LogLevel, out)

	if config.ProtocolLog != "" {
		fileLogger, err := tlog.NewFileLogger(config.ProtocolLog)
		if err != nil {
			log.Fatalf("Failed to open protocol log: %v", err)
		}
		defer fileLogger.Close()
		sessCfg.ProtocolLogger = fileLogger
		if config.LogLevel == "debug" {
			sessCfg.ProtocolLogger = tlog.NewMultiLogger(fileLogger, tlog.NewSlogAdapter(sessCfg.Logger))
		}
		log.Printf("Protocol capture: %s", config.ProtocolLog)
	}

	sess, err := session.New(sessCfg)
	if err != nil {
		log.Printf("Failed to create session: %v", err)
		return 1
	}
	defer sess.Close()

	dispatch := api.New(api.WithRetry(sess, config.Retries), api.Config{Logger: sessCfg.Logger})
	c := newClient(dispatch, sess, store, config.Host, out)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if config.Interactive {
		sh.client = c
		sh.Run(ctx, cancel)
		return 0
	}

	if err := c.run(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		log.Printf("Error: %v", err)
		return 1
	}
	return 0
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}

// newSlogLogger returns the library logger for level.
func newSlogLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	default:
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
