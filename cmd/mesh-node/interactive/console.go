// Package interactive provides the interactive command-line console of
// mesh-node.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/hybridmesh/mesh-go/pkg/eventbus"
	"github.com/hybridmesh/mesh-go/pkg/mesh"
	"github.com/hybridmesh/mesh-go/pkg/registry"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// Console handles interactive mode for mesh-node.
type Console struct {
	svc *mesh.Service
	rl  *readline.Instance
	out io.Writer

	// watch prints discovery events as they arrive.
	watch   *eventbus.Subscription
	updates *eventbus.Subscription
}

// New creates a console on the terminal.
func New(svc *mesh.Service) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mesh> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(svc, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(svc *mesh.Service, out io.Writer) *Console {
	c := &Console{svc: svc, out: out}
	c.updates = svc.SubscribeFunc(c.handleEvent, eventbus.FamilyLifecycle, eventbus.FamilyData)
	return c
}

func completer() *readline.PrefixCompleter {
	transports := []readline.PrefixCompleterInterface{
		readline.PcItem("ble"),
		readline.PcItem("wifi"),
		readline.PcItem("all"),
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("scan", transports...),
		readline.PcItem("stop", transports...),
		readline.PcItem("devices", transports...),
		readline.PcItem("paired"),
		readline.PcItem("topology"),
		readline.PcItem("connect"),
		readline.PcItem("disconnect"),
		readline.PcItem("send"),
		readline.PcItem("sessions"),
		readline.PcItem("status"),
		readline.PcItem("watch", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("clear"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that properly coordinates with the readline input.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.exec(ctx, line) {
			cancel()
			return
		}
	}
}

func (c *Console) close() {
	c.updates.Close()
	if c.watch != nil {
		c.watch.Close()
	}
}

// exec runs one command line. It returns false when the console should exit.
func (c *Console) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "scan":
		c.cmdScan(ctx, args, true)

	case "stop":
		c.cmdScan(ctx, args, false)

	case "devices", "d":
		c.cmdDevices(args)

	case "paired":
		c.cmdPaired(ctx)

	case "topology":
		c.cmdTopology()

	case "connect", "c":
		c.cmdConnect(ctx, args)

	case "disconnect":
		c.cmdDisconnect(ctx, args)

	case "send":
		c.cmdSend(ctx, args)

	case "sessions":
		c.cmdSessions()

	case "status", "s":
		c.cmdStatus()

	case "watch":
		c.cmdWatch(args)

	case "clear":
		c.svc.ClearDevices()
		fmt.Fprintln(c.out, "Cleared known devices")

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Mesh Node Commands:
  Discovery:
    scan [ble|wifi|all]     - Start scanning (default all)
    stop [ble|wifi|all]     - Stop scanning (default all)
    devices [ble|wifi]      - List known devices
    paired                  - List bonded BLE devices
    topology                - Show which known devices can reach each other
    watch on|off            - Print discovery events as they arrive
    clear                   - Forget all known devices

  Connections:
    connect <id>            - Connect to a device
    disconnect <id>         - Disconnect from a device
    send <id> <text>        - Send text to a connected device
    sessions                - List connection sessions

  General:
    status                  - Show radio and scan status
    help                    - Show this help
    quit                    - Exit`)
}

// parseTransports parses an optional transport argument. Nil means every
// transport.
func parseTransports(args []string) ([]transport.Kind, error) {
	if len(args) == 0 || strings.EqualFold(args[0], "all") {
		return nil, nil
	}
	k, err := transport.ParseKind(args[0])
	if err != nil {
		return nil, err
	}
	return []transport.Kind{k}, nil
}

func (c *Console) cmdScan(ctx context.Context, args []string, start bool) {
	kinds, err := parseTransports(args)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	verb := "Stopped"
	if start {
		verb = "Started"
	}

	if kinds == nil {
		if start {
			err = c.svc.StartScanAll(ctx)
		} else {
			err = c.svc.StopScanAll(ctx)
		}
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
		for _, k := range c.svc.Transports() {
			fmt.Fprintf(c.out, "  %-12s %s\n", k, c.svc.ScanState(k))
		}
		return
	}

	k := kinds[0]
	if start {
		err = c.svc.StartScan(ctx, k)
	} else {
		err = c.svc.StopScan(ctx, k)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s %s scan\n", verb, k)
}

func (c *Console) cmdDevices(args []string) {
	var devices []registry.PeerDevice
	kinds, err := parseTransports(args)
	switch {
	case err != nil:
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	case kinds == nil:
		devices = c.svc.KnownDevices()
	default:
		devices = c.svc.DevicesByTransport(kinds[0])
	}

	if len(devices) == 0 {
		fmt.Fprintln(c.out, "No known devices")
		return
	}

	fmt.Fprintf(c.out, "\nKnown Devices (%d):\n", len(devices))
	fmt.Fprintln(c.out, "-------------------------------------------")
	for _, d := range devices {
		c.printDevice(d)
	}
}

func (c *Console) printDevice(d registry.PeerDevice) {
	tag := ""
	if d.HasMeshService {
		tag = " [mesh]"
	}
	fmt.Fprintf(c.out, "  %s  %s%s\n", d.ID, d.Name, tag)
	fmt.Fprintf(c.out, "      Transport: %s\n", d.Transport)
	if d.SignalStrength != nil {
		fmt.Fprintf(c.out, "      RSSI:      %d dBm\n", *d.SignalStrength)
	}
	if d.Transport == transport.KindWiFiDirect {
		fmt.Fprintf(c.out, "      P2P:       %s\n", d.P2PStatus)
	}
	fmt.Fprintf(c.out, "      Status:    %s\n", d.Status)
	if !d.LastSeen.IsZero() {
		fmt.Fprintf(c.out, "      Last seen: %s\n", d.LastSeen.Format("15:04:05"))
	}
}

func (c *Console) cmdTopology() {
	topo := c.svc.Topology()
	if len(topo) == 0 {
		fmt.Fprintln(c.out, "No known devices")
		return
	}

	ids := make([]string, 0, len(topo))
	for id := range topo {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(c.out, "\nTopology (%d devices):\n", len(ids))
	for _, id := range ids {
		reach := "(none)"
		if len(topo[id]) > 0 {
			reach = strings.Join(topo[id], ", ")
		}
		fmt.Fprintf(c.out, "  %s -> %s\n", id, reach)
	}
}

func (c *Console) cmdPaired(ctx context.Context) {
	devices, err := c.svc.PairedDevices(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if len(devices) == 0 {
		fmt.Fprintln(c.out, "No paired devices")
		return
	}
	fmt.Fprintf(c.out, "\nPaired Devices (%d):\n", len(devices))
	for _, d := range devices {
		fmt.Fprintf(c.out, "  %s  %s\n", d.Address, d.Name)
	}
}

func (c *Console) cmdConnect(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: connect <id>")
		return
	}
	fmt.Fprintf(c.out, "Connecting to %s...\n", args[0])
	if err := c.svc.ConnectToDevice(ctx, args[0]); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Connected to %s\n", args[0])
}

func (c *Console) cmdDisconnect(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: disconnect <id>")
		return
	}
	if err := c.svc.DisconnectFromDevice(ctx, args[0]); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Disconnected from %s\n", args[0])
}

func (c *Console) cmdSend(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: send <id> <text>")
		return
	}
	payload := []byte(strings.Join(args[1:], " "))
	if err := c.svc.SendData(ctx, args[0], payload); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Sent %d bytes to %s\n", len(payload), args[0])
}

func (c *Console) cmdSessions() {
	sessions := c.svc.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(c.out, "No sessions")
		return
	}
	fmt.Fprintf(c.out, "\nSessions (%d):\n", len(sessions))
	for _, s := range sessions {
		fmt.Fprintf(c.out, "  %s  %s over %s", s.PeerID, s.State, s.Transport)
		if !s.ConnectedAt.IsZero() {
			fmt.Fprintf(c.out, " since %s", s.ConnectedAt.Format("15:04:05"))
		}
		fmt.Fprintln(c.out)
		if s.LastError != nil {
			fmt.Fprintf(c.out, "      Last error: %v\n", s.LastError)
		}
	}
}

func (c *Console) cmdStatus() {
	fmt.Fprintln(c.out, "\nNode Status")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Service State:  %s\n", c.svc.State())
	for _, k := range c.svc.Transports() {
		radio := "off"
		if c.svc.IsRadioEnabled(k) {
			radio = "on"
		}
		fmt.Fprintf(c.out, "  %-14s  radio %s, scan %s, %d device(s)\n",
			k.String()+":", radio, c.svc.ScanState(k), len(c.svc.DevicesByTransport(k)))
	}
	fmt.Fprintf(c.out, "  Sessions:       %d\n", len(c.svc.Sessions()))
	fmt.Fprintln(c.out)
}

func (c *Console) cmdWatch(args []string) {
	on := len(args) == 0 || strings.EqualFold(args[0], "on")
	if !on {
		if c.watch != nil {
			c.watch.Close()
			c.watch = nil
		}
		fmt.Fprintln(c.out, "Discovery watch off")
		return
	}
	if c.watch == nil {
		c.watch = c.svc.SubscribeFunc(c.printDiscovery, eventbus.FamilyDiscovery)
	}
	fmt.Fprintln(c.out, "Discovery watch on")
}

func (c *Console) printDiscovery(ev eventbus.Event) {
	d := ev.Discovery
	state := "seen"
	if !d.IsOnline {
		state = "gone"
	}
	fmt.Fprintf(c.out, "[%s] %s %s %s (%s)\n", ev.Timestamp.Format("15:04:05"), ev.Transport, state, d.ID, d.Name)
}

// handleEvent shows connection changes and inbound data.
func (c *Console) handleEvent(ev eventbus.Event) {
	switch {
	case ev.Lifecycle != nil && ev.Lifecycle.Entity == eventbus.EntityConnection:
		l := ev.Lifecycle
		fmt.Fprintf(c.out, "[EVENT] %s %s -> %s", l.PeerID, l.FromState, l.ToState)
		if l.Reason != "" {
			fmt.Fprintf(c.out, " (%s)", l.Reason)
		}
		fmt.Fprintln(c.out)
	case ev.Data != nil:
		fmt.Fprintf(c.out, "[DATA] %s via %s: %q\n", ev.Data.PeerID, ev.Transport, truncate(ev.Data.Payload, 64))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
