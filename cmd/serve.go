package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/vidq/internal/events"
	"github.com/tanq16/vidq/internal/metrics"
	"github.com/tanq16/vidq/internal/output"
	"github.com/tanq16/vidq/internal/server"
	"github.com/tanq16/vidq/internal/utils"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [--addr ADDR]",
		Short: "Run the task API with an event stream and metrics",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := serve(addr); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", ":8899", "Address to listen on")
	return cmd
}

func serve(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if n, err := rt.repo.MarkInterrupted(ctx); err != nil {
		log.Error().Str("op", "cmd/serve").Err(err).Msg("error resetting unfinished tasks")
	} else if n > 0 {
		log.Info().Str("op", "cmd/serve").Msgf("Marked %d unfinished tasks from a previous run as stopped", n)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	detach := metrics.New(reg).Attach(rt.bus)
	defer detach()

	unlog := rt.bus.Subscribe(events.DownloadMessage, func(e events.Event) {
		log.Debug().Str("op", "cmd/serve").Str("task", e.TaskID).Msg(utils.StripColors(e.Message))
	})
	defer unlog()

	go func() {
		if err := rt.store.Watch(ctx); err != nil {
			log.Error().Str("op", "cmd/serve").Err(err).Msg("config watcher stopped")
		}
	}()

	err = server.New(addr, rt.repo, rt.sched, rt.store, rt.bus, reg).Start(ctx)
	rt.sched.StopAll()
	drain(rt.sched)
	return err
}
