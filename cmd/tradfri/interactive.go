package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// shell is the interactive command loop.
type shell struct {
	rl     *readline.Instance
	client *client

	mu      sync.Mutex
	watches map[int]context.CancelFunc
	nextID  int
}

func newShell() (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tradfri> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("provision"),
			readline.PcItem("get"),
			readline.PcItem("put"),
			readline.PcItem("post"),
			readline.PcItem("observe"),
			readline.PcItem("watches"),
			readline.PcItem("unwatch"),
			readline.PcItem("devices"),
			readline.PcItem("groups"),
			readline.PcItem("info"),
			readline.PcItem("endpoints"),
			readline.PcItem("light"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &shell{rl: rl, watches: make(map[int]context.CancelFunc)}, nil
}

// Stdout returns a writer that coordinates with the prompt.
func (s *shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run reads commands until quit, EOF or ctx ends.
func (s *shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()
	defer s.unwatchAll()

	out := s.rl.Stdout()
	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "observe", "watch":
			s.cmdWatch(ctx, args)

		case "watches":
			s.cmdWatches()

		case "unwatch":
			s.cmdUnwatch(args)

		case "quit", "exit", "q":
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return

		default:
			if err := s.client.run(ctx, cmd, rejoinJSON(cmd, args)); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}
	}
}

// rejoinJSON restores spaces inside the JSON argument of put and post.
func rejoinJSON(cmd string, args []string) []string {
	if (cmd == "put" || cmd == "post") && len(args) > 2 {
		return []string{args[0], strings.Join(args[1:], " ")}
	}
	return args
}

// cmdWatch runs an observation in the background.
func (s *shell) cmdWatch(ctx context.Context, args []string) {
	wctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watches[id] = cancel
	s.mu.Unlock()

	out := s.rl.Stdout()
	fmt.Fprintf(out, "Watch %d started (unwatch %d to stop)\n", id, id)

	go func() {
		defer s.removeWatch(id)
		err := s.client.cmdObserve(wctx, args)
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(out, "Watch %d: %v\n", id, err)
			return
		}
		fmt.Fprintf(out, "Watch %d finished\n", id)
	}()
}

func (s *shell) cmdWatches() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.watches) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No active watches")
		return
	}
	for id := range s.watches {
		fmt.Fprintf(s.rl.Stdout(), "  watch %d\n", id)
	}
}

func (s *shell) cmdUnwatch(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: unwatch <id>|all")
		return
	}
	if args[0] == "all" {
		s.unwatchAll()
		return
	}

	var id int
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid watch id: %s\n", args[0])
		return
	}

	s.mu.Lock()
	cancel, ok := s.watches[id]
	s.mu.Unlock()
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "No watch %d\n", id)
		return
	}
	cancel()
}

func (s *shell) removeWatch(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.watches[id]; ok {
		cancel()
		delete(s.watches, id)
	}
}

func (s *shell) unwatchAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.watches {
		cancel()
	}
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
Tradfri Commands:
  Setup:
    provision <security-code>   - Register a new identity with the gateway

  Resources:
    get <path>                  - Read a resource (e.g. get 15001/65537)
    put <path> <json>           - Write a resource
    post <path> [json]          - Submit to a resource
    endpoints                   - List the gateway's resources

  Observation:
    observe <path> [seconds]    - Watch a resource in the background
    watches                     - List active watches
    unwatch <id>|all            - Stop watching

  Devices:
    devices                     - List devices with their state
    groups                      - List groups
    info                        - Show gateway information
    light <id> on|off           - Switch a light
    light <id> dim <0-254>      - Dim a light
    light <id> temp <250-454>   - Set colour temperature (mireds)

  General:
    help                        - Show this help
    quit                        - Exit`)
}
