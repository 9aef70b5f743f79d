package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradfri-go/tradfri/pkg/api"
	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/model"
	"github.com/tradfri-go/tradfri/pkg/persistence"
)

// errUsage marks a command invoked with the wrong arguments.
var errUsage = errors.New("usage")

// DefaultObserveSeconds is how long observe runs without an explicit duration.
const DefaultObserveSeconds = 60

// provisioner exchanges a security code for a key. Implemented by
// *session.Session.
type provisioner interface {
	GeneratePSK(ctx context.Context, securityCode, identity string) (string, error)
}

// client runs CLI commands against one gateway.
type client struct {
	api   *api.API
	psk   provisioner
	store *persistence.CredentialStore
	host  string
	out   io.Writer

	// newIdentity generates the identity registered by provision.
	newIdentity func() string
}

func newClient(dispatch *api.API, psk provisioner, store *persistence.CredentialStore, host string, out io.Writer) *client {
	return &client{
		api:         dispatch,
		psk:         psk,
		store:       store,
		host:        host,
		out:         out,
		newIdentity: newIdentity,
	}
}

func newIdentity() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// run executes one command line.
func (c *client) run(ctx context.Context, name string, args []string) error {
	switch name {
	case "provision":
		return c.cmdProvision(ctx, args)
	case "get":
		return c.cmdGet(ctx, args)
	case "put":
		return c.cmdWrite(ctx, args, command.Replace)
	case "post":
		return c.cmdWrite(ctx, args, command.Create)
	case "observe":
		return c.cmdObserve(ctx, args)
	case "devices":
		return c.cmdDevices(ctx)
	case "groups":
		return c.cmdGroups(ctx)
	case "info":
		return c.cmdInfo(ctx)
	case "endpoints":
		return c.cmdEndpoints(ctx)
	case "light":
		return c.cmdLight(ctx, args)
	default:
		return fmt.Errorf("unknown command: %s", name)
	}
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func (c *client) printJSON(v any) error {
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(c.out, s)
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

func (c *client) cmdProvision(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: provision <security-code>", errUsage)
	}

	identity := c.newIdentity()
	key, err := c.psk.GeneratePSK(ctx, args[0], identity)
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}

	if err := c.store.Save(c.host, persistence.Credentials{Identity: identity, Key: key}); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	fmt.Fprintf(c.out, "Provisioned identity %s for %s (saved to %s)\n", identity, c.host, c.store.Path())
	return nil
}

func (c *client) cmdGet(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: get <path>", errUsage)
	}
	res, err := c.api.Request(ctx, command.Fetch(splitPath(args[0])))
	if err != nil {
		return err
	}
	return c.printJSON(res)
}

func (c *client) cmdWrite(ctx context.Context, args []string, build func([]string, any, ...command.Option) *command.Command) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: put|post <path> [json]", errUsage)
	}

	var payload any
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
			return fmt.Errorf("invalid JSON payload: %w", err)
		}
	}

	res, err := c.api.Request(ctx, build(splitPath(args[0]), payload))
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Fprintln(c.out, "OK")
		return nil
	}
	return c.printJSON(res)
}

func (c *client) cmdObserve(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: observe <path> [seconds]", errUsage)
	}
	seconds := DefaultObserveSeconds
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid duration %q", args[1])
		}
		seconds = n
	}

	failed := make(chan error, 1)
	cmd := command.Fetch(splitPath(args[0]),
		command.WithObserve(time.Duration(seconds)*time.Second),
		command.WithUpdateHandler(func(cmd *command.Command) {
			fmt.Fprintf(c.out, "[%s] update\n", time.Now().Format("15:04:05"))
			_ = c.printJSON(cmd.Result())
		}),
		command.WithErrorHandler(func(err error) {
			failed <- err
		}),
	)

	obs, err := c.api.Observe(ctx, cmd)
	if err != nil {
		return err
	}
	_ = c.printJSON(cmd.Result())

	<-obs.Done()
	select {
	case err := <-failed:
		return fmt.Errorf("observation stopped: %w", err)
	default:
	}
	fmt.Fprintf(c.out, "Observation %s\n", strings.ToLower(obs.State().String()))
	return nil
}

// resolveAll runs a listing command whose result is one command per
// resource and returns the resolved results.
func (c *client) resolveAll(ctx context.Context, list *command.Command) ([]any, error) {
	res, err := c.api.Request(ctx, list)
	if err != nil {
		return nil, err
	}
	cmds, err := model.As[[]*command.Command](res)
	if err != nil {
		return nil, err
	}
	return c.api.RequestAsync(ctx, cmds).Wait()
}

func (c *client) cmdDevices(ctx context.Context) error {
	results, err := c.resolveAll(ctx, model.GetDevices())
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(c.out, "No devices paired")
		return nil
	}

	fmt.Fprintf(c.out, "Devices (%d):\n", len(results))
	for _, r := range results {
		d, err := model.As[*model.Device](r)
		if err != nil {
			fmt.Fprintf(c.out, "  ?      %v\n", err)
			continue
		}
		status := "reachable"
		if !d.Reachable {
			status = "unreachable"
		}
		fmt.Fprintf(c.out, "  %-6d %-24s %-16s %-11s %s\n", d.ID, d.Name, d.ApplicationType, status, d.Capabilities)
		for _, l := range d.Lights {
			fmt.Fprintf(c.out, "         light: on=%t dimmer=%d", l.State, l.Dimmer)
			if l.SupportsColorTemp() {
				fmt.Fprintf(c.out, " mireds=%d", l.ColorMireds)
			}
			if l.ColorHex != "" {
				fmt.Fprintf(c.out, " color=%s", l.ColorHex)
			}
			fmt.Fprintln(c.out)
		}
	}
	return nil
}

func (c *client) cmdGroups(ctx context.Context) error {
	results, err := c.resolveAll(ctx, model.GetGroups())
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(c.out, "No groups")
		return nil
	}

	fmt.Fprintf(c.out, "Groups (%d):\n", len(results))
	for _, r := range results {
		g, err := model.As[*model.Group](r)
		if err != nil {
			fmt.Fprintf(c.out, "  ?      %v\n", err)
			continue
		}
		fmt.Fprintf(c.out, "  %-6d %-24s on=%t dimmer=%d members=%v\n", g.ID, g.Name, g.State, g.Dimmer, g.MemberIDs)
	}
	return nil
}

func (c *client) cmdInfo(ctx context.Context) error {
	res, err := c.api.Request(ctx, model.GetGatewayInfo())
	if err != nil {
		return err
	}
	info, err := model.As[*model.GatewayInfo](res)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Gateway:   %s\n", info.ID)
	fmt.Fprintf(c.out, "Firmware:  %s\n", info.Firmware)
	fmt.Fprintf(c.out, "NTP:       %s\n", info.NTPServer)
	if !info.CurrentTime.IsZero() {
		fmt.Fprintf(c.out, "Time:      %s\n", info.CurrentTime.Format(time.RFC3339))
	}
	return nil
}

func (c *client) cmdEndpoints(ctx context.Context) error {
	res, err := c.api.Request(ctx, model.GetEndpoints())
	if err != nil {
		return err
	}
	text, _ := res.(string)
	for _, link := range strings.Split(text, ",") {
		fmt.Fprintln(c.out, link)
	}
	return nil
}

// cmdLight handles "light <id> on|off|dim <0-254>|temp <mireds>".
func (c *client) cmdLight(ctx context.Context, args []string) error {
	usage := fmt.Errorf("%w: light <id> on|off|dim <level>|temp <mireds>", errUsage)
	if len(args) < 2 {
		return usage
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid device id %q", args[0])
	}

	var cmd *command.Command
	switch args[1] {
	case "on", "off":
		cmd = model.SetLightState(id, args[1] == "on")
	case "dim", "temp":
		if len(args) != 3 {
			return usage
		}
		v, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid value %q", args[2])
		}
		if args[1] == "dim" {
			cmd, err = model.SetDimmer(id, v, 0)
		} else {
			cmd, err = model.SetColorTemp(id, v, 0)
		}
		if err != nil {
			return err
		}
	default:
		return usage
	}

	if _, err := c.api.Request(ctx, cmd); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "OK")
	return nil
}
