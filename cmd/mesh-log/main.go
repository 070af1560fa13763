// Command mesh-log is a tool for viewing and analyzing mesh node journals.
//
// Journals are written by mesh-node when it runs with the -journal flag or a
// journal path in its configuration file.
//
// Usage:
//
//	mesh-log <command> [flags] <file.journal>
//
// Commands:
//
//	view     View journal in human-readable format
//	export   Export journal to JSON or CSV format
//	filter   Filter journal and write to new file
//	stats    Show statistics about the journal
//
// Examples:
//
//	# View all events
//	mesh-log view node.journal
//
//	# View only BLE discovery events
//	mesh-log view -transport ble -category discovery node.journal
//
//	# Export to CSV
//	mesh-log export -format csv -o node.csv node.journal
//
//	# Keep only the events of one peer
//	mesh-log filter -peer AA:BB:CC:DD:EE:FF -o peer.journal node.journal
//
//	# Show statistics
//	mesh-log stats node.journal
//
// A journal path of "-" reads from standard input.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hybridmesh/mesh-go/cmd/mesh-log/commands"
)

// subcommand is one mesh-log verb. run receives the arguments after the
// verb.
type subcommand struct {
	name    string
	summary string
	run     func(c subcommand, args []string) error
}

var subcommands = []subcommand{
	{"view", "View journal in human-readable format", runView},
	{"export", "Export journal to JSON or CSV format", runExport},
	{"filter", "Filter journal and write to new file", runFilter},
	{"stats", "Show statistics about the journal", runStats},
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `mesh-log - Mesh Node Journal Analyzer

Usage:
  mesh-log <command> [flags] <file.journal>

Commands:
`)
	for _, c := range subcommands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprint(w, `
A journal path of "-" reads from standard input.

Use "mesh-log <command> -help" for more information about a command.
`)
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	name, args := os.Args[1], os.Args[2:]
	switch name {
	case "-h", "-help", "--help", "help":
		printUsage(os.Stdout)
		return
	}

	for _, c := range subcommands {
		if c.name != name {
			continue
		}
		if err := c.run(c, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
	printUsage(os.Stderr)
	os.Exit(1)
}

// newFlagSet returns a flag set whose usage names the command and lists its
// flags.
func newFlagSet(c subcommand, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(c.name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "mesh-log %s - %s\n\n", c.name, c.summary)
		fmt.Fprintf(os.Stderr, "Usage:\n  mesh-log %s %s\n\nFlags:\n", c.name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// filterFlags registers the shared event filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.LinkID, "link-id", "", "Only events on this link")
	fs.StringVar(&opts.PeerID, "peer", "", "Only events about this peer ID")
	fs.StringVar(&opts.Transport, "transport", "", "Only this transport (ble, wifi)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Drop events before this RFC3339 time")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Drop events at or after this RFC3339 time")
	fs.StringVar(&opts.Layer, "layer", "", "Only this layer (link, driver, service)")
	fs.StringVar(&opts.Direction, "direction", "", "Only this direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Only this category (message, discovery, state, error)")
	return opts
}

// parseArgs parses args into fs and returns the single journal path.
func parseArgs(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("expected one journal path, got %d arguments", fs.NArg())
	}
	return fs.Arg(0), nil
}

func runView(c subcommand, args []string) error {
	fs := newFlagSet(c, "[flags] <file.journal>")
	opts := filterFlags(fs)
	path, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	filter, err := opts.Filter()
	if err != nil {
		return err
	}
	return commands.RunView(path, filter, os.Stdout)
}

func runExport(c subcommand, args []string) error {
	fs := newFlagSet(c, "[flags] <file.journal>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	return commands.RunExport(path, *format, *output)
}

func runFilter(c subcommand, args []string) error {
	fs := newFlagSet(c, "-o <out.journal> [flags] <file.journal>")
	opts := filterFlags(fs)
	fs.StringVar(&opts.Output, "o", "", "Output journal (required)")
	path, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if opts.Output == "" {
		fs.Usage()
		return errors.New("output journal (-o) required")
	}
	return commands.RunFilter(path, *opts, os.Stdout)
}

func runStats(c subcommand, args []string) error {
	fs := newFlagSet(c, "<file.journal>")
	path, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, os.Stdout)
}
