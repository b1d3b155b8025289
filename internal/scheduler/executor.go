package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/events"
	"github.com/tanq16/vidq/internal/utils"
)

// execute drives one task from downloading to a terminal status. The slot is
// always released and the token always removed, whatever the outcome.
func (s *Scheduler) execute(task utils.Task) {
	defer s.running.Done()
	defer s.onTaskFinished(task.ID)
	defer s.unregister(task.ID)

	err := s.run(task)
	if err == nil {
		return
	}
	if errors.Is(err, utils.ErrAborted) {
		log.Info().Str("op", "scheduler/execute").Msgf("Task %s stopped", task.ID)
		s.persist(task.ID, utils.StatusStopped)
		s.bus.Publish(events.Event{Kind: events.DownloadStop, TaskID: task.ID})
		return
	}
	log.Error().Str("op", "scheduler/execute").Err(err).Msgf("Task %s failed", task.ID)
	s.persist(task.ID, utils.StatusFailed)
	s.bus.Publish(events.Event{Kind: events.DownloadFailed, TaskID: task.ID, Err: err})
}

func (s *Scheduler) run(task utils.Task) error {
	if err := s.repo.ChangeStatus(context.Background(), task.ID, utils.StatusDownloading); err != nil {
		return fmt.Errorf("error persisting status: %w", err)
	}
	s.bus.Publish(events.Event{Kind: events.DownloadStart, TaskID: task.ID})
	log.Info().Str("op", "scheduler/run").Msgf("Task %s started", task.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.register(task.ID, cancel)

	job := s.buildJob(task)
	if err := s.download(ctx, job); err != nil {
		return err
	}
	s.unregister(task.ID)

	if err := s.repo.ChangeStatus(context.Background(), task.ID, utils.StatusSuccess); err != nil {
		return fmt.Errorf("error persisting status: %w", err)
	}
	log.Info().Str("op", "scheduler/run").Msgf("Task %s succeeded", task.ID)
	s.bus.Publish(events.Event{Kind: events.DownloadSuccess, TaskID: task.ID})
	return nil
}

func (s *Scheduler) buildJob(task utils.Task) *utils.DownloadJob {
	job := &utils.DownloadJob{
		ID:       task.ID,
		Params:   task.Params,
		Proxy:    task.Params.Proxy,
		Metadata: make(map[string]any),
		Callback: func(progress utils.DownloadProgress) {
			s.onProgress(task.ID, progress)
		},
		OnMessage: func(chunk string) {
			s.bus.Publish(events.Event{Kind: events.DownloadMessage, TaskID: task.ID, Message: chunk})
		},
	}
	if proxy, useProxy := s.settings.ProxySettings(); useProxy {
		job.Proxy = proxy
	}
	return job
}

func (s *Scheduler) onProgress(id string, progress utils.DownloadProgress) {
	switch progress.Type {
	case utils.ProgressProgress:
		s.bus.Publish(events.Event{Kind: events.DownloadProgress, TaskID: id, Progress: &progress})
	case utils.ProgressReady:
		s.bus.Publish(events.Event{Kind: events.DownloadReadyStart, TaskID: id, Progress: &progress})
		// a live stream never ends on its own, so it stops counting against
		// the limit once recording begins
		if progress.IsLive {
			log.Debug().Str("op", "scheduler/onProgress").Msgf("Task %s is live, releasing its slot", id)
			s.onTaskFinished(id)
		}
	}
}

// download validates, builds and runs job with its type's downloader. A
// panicking downloader is reported as an ordinary failure.
func (s *Scheduler) download(ctx context.Context, job *utils.DownloadJob) (err error) {
	downloader, ok := s.registry[job.Params.Type]
	if !ok {
		return fmt.Errorf("%w: %q", utils.ErrUnsupportedType, job.Params.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("downloader panic: %v", r)
		}
	}()
	if err := downloader.ValidateJob(job); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := downloader.BuildJob(job); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return downloader.Download(ctx, job)
}

func (s *Scheduler) persist(id string, status utils.DownloadStatus) {
	if err := s.repo.ChangeStatus(context.Background(), id, status); err != nil {
		log.Error().Str("op", "scheduler/persist").Err(err).Msgf("Error saving status %s for task %s", status, id)
	}
}
