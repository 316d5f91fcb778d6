package agent

import (
	"context"
	"fmt"
	"os/exec"
)

// Printer is the local print capability: one invocation prints the
// document at path exactly once.
type Printer interface {
	Print(ctx context.Context, path string) error
}

// LPPrinter prints through the system spooler's lp command. Destination
// may be empty, in which case the spooler's default printer is used.
type LPPrinter struct {
	Destination string
}

func (p *LPPrinter) Print(ctx context.Context, path string) error {
	args := []string{}
	if p.Destination != "" {
		args = append(args, "-d", p.Destination)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, "lp", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("lp failed: %w (%s)", err, string(out))
	}
	return nil
}
