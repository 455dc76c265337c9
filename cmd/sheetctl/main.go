package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/catalogsheet/internal/cli"
	"github.com/JonMunkholm/catalogsheet/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		if core.IsUserFacing(err) {
			ue := core.NewUserError(err)
			fmt.Fprintln(os.Stderr, "error:", core.FormatUserError(ue.User))
			fmt.Fprintln(os.Stderr, "detail:", ue.Technical)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
