package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/config"
	"github.com/tanq16/vidq/internal/events"
	"github.com/tanq16/vidq/internal/output"
	"github.com/tanq16/vidq/internal/repository"
	"github.com/tanq16/vidq/internal/scheduler"
	"github.com/tanq16/vidq/internal/utils"
)

type app struct {
	store *config.Store
	repo  *repository.VideoRepository
	bus   *events.Bus
	sched *scheduler.Scheduler
}

func newApp(ctx context.Context) (*app, error) {
	store, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg := store.Snapshot()
	repo, err := repository.Open(ctx, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	bus := events.NewBus()
	sched := scheduler.New(repo, store, bus, scheduler.NewRegistry(cfg.BinDir))
	if workers > 0 {
		sched.SetLimit(workers)
	}
	log.Debug().Str("op", "cmd/newApp").Msgf("Runtime ready with limit %d, data in %s", sched.Limit(), cfg.DataDir)
	return &app{store: store, repo: repo, bus: bus, sched: sched}, nil
}

func (rt *app) Close() {
	rt.sched.Close()
	if err := rt.repo.Close(); err != nil {
		log.Error().Str("op", "cmd/Close").Err(err).Msg("error closing database")
	}
}

// runTasks records tasks, runs them with the progress display and waits for
// all of them. An interrupt stops every task, including those admitted later.
func runTasks(tasks []utils.Task) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	closeLog, err := redirectLogs(rt.store.Snapshot().DataDir)
	if err != nil {
		return err
	}
	defer closeLog()

	outputMgr := output.NewManager()
	detach := outputMgr.Attach(rt.bus)
	defer detach()

	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = utils.NewTaskID()
		}
		tasks[i].Status = utils.StatusQueued
		if err := rt.repo.Create(ctx, tasks[i]); err != nil {
			return err
		}
		outputMgr.Register(tasks[i].ID, taskLabel(tasks[i].Params))
	}

	outputMgr.StartDisplay()
	for _, task := range tasks {
		rt.sched.Submit(task)
	}
	if err := rt.sched.Wait(ctx); err != nil {
		log.Info().Str("op", "cmd/runTasks").Msg("Interrupted, stopping all tasks")
		drain(rt.sched)
	}
	outputMgr.StopDisplay()

	if failures := outputMgr.Failures(); failures > 0 {
		return fmt.Errorf("%d of %d downloads failed", failures, len(tasks))
	}
	return nil
}

// drain keeps stopping tasks until the scheduler is idle, since pending tasks
// cannot be cancelled before they start.
func drain(sched *scheduler.Scheduler) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() {
		sched.Wait(context.Background())
		close(done)
	}()
	for {
		sched.StopAll()
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func redirectLogs(dataDir string) (func(), error) {
	if debug && logFile == "" {
		return func() {}, nil
	}
	path := logFile
	if path == "" {
		path = filepath.Join(dataDir, utils.LogFile)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	utils.SetLogOutput(f)
	return func() {
		utils.InitLogger(debug)
		f.Close()
	}, nil
}

func taskLabel(params utils.DownloadParams) string {
	if params.Name != "" {
		return fmt.Sprintf("%s (%s)", params.Name, params.Type)
	}
	return fmt.Sprintf("%s (%s)", params.URL, params.Type)
}
