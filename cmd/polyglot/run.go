package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fpt/polyglot/internal/admin"
	"github.com/fpt/polyglot/internal/gateway"
	"github.com/fpt/polyglot/pkg/logger"
	"github.com/fpt/polyglot/pkg/translate"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Aliases: []string{"r"},
		Short:   "Start the relay gateway",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGateway(cmd.Context(), opts)
		},
	}
}

func runGateway(parent context.Context, opts *rootOptions) error {
	cfgPath := opts.path()
	cfg, err := gateway.LoadConfig(cfgPath)
	if err != nil {
		return errors.Wrapf(err, "failed to load config from %s (create a config file, set the environment, or pass --config)", cfgPath)
	}
	log := opts.logger(cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := translate.New(ctx, cfg.TranslatorSettings())
	if err != nil {
		return errors.Wrap(err, "failed to create translator")
	}

	gw, err := gateway.NewGateway(cfg, tr, log)
	if err != nil {
		return errors.Wrap(err, "failed to create gateway")
	}
	defer gw.Close()

	fmt.Println("polyglot relay starting...")
	for _, ep := range cfg.Endpoints() {
		fmt.Printf("  %s: %s\n", ep.Tag, ep.ChannelID)
	}
	fmt.Printf("  Translator: %s\n", cfg.Translator.Backend)
	if cfg.Admin.Addr != "" {
		fmt.Printf("  Admin: %s\n", cfg.Admin.Addr)
	}
	if cfg.Stats.Enabled {
		fmt.Printf("  Stats: every %s\n", cfg.StatsInterval())
	}
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gw.Run(gctx) })
	if cfg.Admin.Addr != "" {
		srv := admin.NewServer(gw.Snapshot, gw.Translator(), log)
		g.Go(func() error { return admin.StartServer(gctx, cfg.Admin.Addr, srv) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.InfoWithIntention(logger.IntentionStatus, "Relay stopped")
		return nil
	}
	return err
}
