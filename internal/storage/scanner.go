package storage

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandScanner runs an external scanner (clamdscan, for example) against
// each file. A non-zero exit status means the file is rejected.
type CommandScanner struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func NewCommandScanner(command string) *CommandScanner {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	return &CommandScanner{
		Command: fields[0],
		Args:    fields[1:],
		Timeout: 30 * time.Second,
	}
}

func (s *CommandScanner) Scan(ctx context.Context, path string) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, s.Args...), path)
	cmd := exec.CommandContext(ctx, s.Command, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", s.Command, err, strings.TrimSpace(out.String()))
	}
	return nil
}
