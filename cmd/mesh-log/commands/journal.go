package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hybridmesh/mesh-go/pkg/log"
)

// Stdin is the journal path that reads from standard input.
const Stdin = "-"

func openJournal(path string, filter log.Filter) (*log.Reader, error) {
	if path == Stdin {
		return log.NewStreamReader(os.Stdin, filter), nil
	}
	return log.NewFilteredReader(path, filter)
}

// forEach calls fn with every event in the journal at path that matches
// filter, stopping at the first error.
func forEach(path string, filter log.Filter, fn func(log.Event) error) error {
	reader, err := openJournal(path, filter)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

// createOutput returns stdout for an empty name.
func createOutput(name string) (io.Writer, func() error, error) {
	if name == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
