package main

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/app"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/spf13/cobra"
)

// opener builds the engine the commands operate on.
type opener func(ctx context.Context) (*app.App, error)

func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	// stdout belongs to command output
	logCfg := cfg.Logger()
	if logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	if logCfg.OutputFile == "" || logCfg.OutputFile == "stdout" {
		logCfg.OutputFile = "stderr"
	}
	return app.New(ctx, cfg, logger.New(logCfg))
}

func newRootCmd(open opener) *cobra.Command {
	var jsonOutput bool

	root := &cobra.Command{
		Use:           "galleryctl",
		Short:         "Inspect and maintain vehicle listing photo sets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newListingsCmd(open, &jsonOutput),
		newVehiclesCmd(open, &jsonOutput),
		newFeaturedCmd(open, &jsonOutput),
		newSearchCmd(open, &jsonOutput),
		newGroupCmd(open, &jsonOutput),
		newDeleteCmd(open, &jsonOutput),
	)
	return root
}

// withApp opens the engine for the duration of fn.
func withApp(ctx context.Context, open opener, fn func(a *app.App) error) error {
	a, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open gallery: %w", err)
	}
	defer func() { _ = a.Close(context.Background()) }()
	return fn(a)
}
