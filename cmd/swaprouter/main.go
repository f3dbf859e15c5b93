// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func rootCommand() *cobra.Command {
	c := &cobra.Command{
		Use:           "swaprouter",
		Short:         "Cross-chain swap router node and key tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.AddCommand(
		serveCommand(),
		keygenCommand(),
		dstCommand(),
		requestIDCommand(),
		signCommand(),
		verifyCommand(),
	)
	return c
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "swaprouter failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}
