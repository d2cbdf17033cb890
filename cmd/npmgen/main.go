package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/npmgen/internal/cli"
	npmerrors "github.com/matzehuels/npmgen/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		// A killed npm reports "signal: killed" rather than context.Canceled.
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		if out, ok := npmerrors.CapturedOutput(err); ok && len(out) > 0 {
			os.Stderr.Write(out)
			if out[len(out)-1] != '\n' {
				fmt.Fprintln(os.Stderr)
			}
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	return c.RootCommand().ExecuteContext(ctx)
}
