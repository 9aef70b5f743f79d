// Command tradfri-bridge mirrors Tradfri device state to an MQTT broker.
//
// Every paired device is observed; each update is published retained on
// <prefix>/device/<id>/state. JSON written to <prefix>/device/<id>/set is
// sent to the gateway. Observations that stop are restarted with
// exponential backoff. Prometheus metrics are served on -metrics-addr.
//
// Usage:
//
//	tradfri-bridge [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-host string          Gateway address
//	-psk-file string      Credential file written by 'tradfri provision'
//	-timeout duration     Per-request timeout (default 10s)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-metrics-addr string  Prometheus listen address (default ":9464")
//	-broker string        MQTT broker URL (default "tcp://localhost:1883")
//	-prefix string        MQTT topic prefix (default "tradfri")
//
// Set payloads either use gateway attribute codes, written as given:
//
//	{"3311":[{"5850":1,"5851":254}]}
//
// or named fields, combined into one write:
//
//	{"on":true,"dimmer":200,"mireds":370,"transition":10}
//	{"color":"f1e0b5"}  {"position":40}  {"stop":true}  {"fan_speed":25}  {"name":"Desk"}
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tradfri-go/tradfri/pkg/api"
	"github.com/tradfri-go/tradfri/pkg/metrics"
	"github.com/tradfri-go/tradfri/pkg/persistence"
	"github.com/tradfri-go/tradfri/pkg/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("tradfri-bridge", flag.ContinueOnError)
	config, err := parseConfig(fs, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := config.Validate(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		return 2
	}

	setupLogging(config.LogLevel)
	logger := newSlogLogger(config.LogLevel, os.Stderr)

	log.Println("Tradfri MQTT Bridge")
	log.Println("===================")
	log.Printf("Gateway: %s", config.Host)
	log.Printf("Broker:  %s (prefix %s)", config.MQTT.Broker, config.MQTT.Prefix)

	store := persistence.NewCredentialStore(config.PSKFile)
	creds, ok, err := store.Load(config.Host)
	if err != nil {
		log.Printf("Failed to load credentials: %v", err)
		return 1
	}
	if !ok {
		log.Printf("No credentials for %s in %s; run 'tradfri -host %s provision <code>' first",
			config.Host, store.Path(), config.Host)
		return 1
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sessConfig := session.DefaultConfig()
	sessConfig.Host = config.Host
	sessConfig.Identity = creds.Identity
	sessConfig.PSK = creds.Key
	sessConfig.Timeout = config.Timeout
	sessConfig.Logger = logger
	sessConfig.Metrics = m

	sess, err := session.New(sessConfig)
	if err != nil {
		log.Printf("Failed to create session: %v", err)
		return 1
	}
	defer sess.Close()

	dispatch := api.New(api.WithRetry(sess, config.Retries), api.Config{Logger: logger})

	mq, err := dialMQTT(config.MQTT, logger)
	if err != nil {
		log.Printf("Failed to connect to broker: %v", err)
		return 1
	}
	defer mq.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.MetricsAddr != "" {
		go serveMetrics(ctx, config.MetricsAddr, reg, logger)
	}

	bridge := NewBridge(apiGateway{api: dispatch}, mq, BridgeConfig{
		Prefix:          config.MQTT.Prefix,
		ObserveDuration: config.ObserveDuration,
		Rescan:          config.Rescan,
		Backoff:         config.Backoff,
		Logger:          logger,
		Metrics:         m,
	})

	log.Println("Bridge running")
	if err := bridge.Run(ctx); err != nil {
		log.Printf("Bridge stopped: %v", err)
		return 1
	}
	log.Println("Shutting down...")
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

