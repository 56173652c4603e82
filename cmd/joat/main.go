// Package main implements joat. The name the binary is invoked as selects
// the personality whose configuration is loaded.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/joat-cli/joat/internal/logging"
	"github.com/joat-cli/joat/internal/runtime"
	"github.com/joat-cli/joat/internal/settings"
	errUtils "github.com/joat-cli/joat/pkg/errors"
)

// version is set at build time.
var version = "0.4.0"

func main() {
	app := strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe")

	if err := run(app, os.Args[1:]); err != nil {
		if !errUtils.IsSilent(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if hint := errors.FlattenHints(err); hint != "" {
				fmt.Fprintln(os.Stderr, hint)
			}
		}
		os.Exit(errUtils.GetExitCode(err))
	}
}

func run(app string, args []string) error {
	s := settings.Load()

	logger, err := logging.NewLogger(s.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt, err := runtime.NewRuntime(&runtime.RuntimeConfig{
		App:         app,
		ToolVersion: version,
		Settings:    s,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return rt.Execute(ctx, args)
}
