package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tanq16/vidq/internal/utils"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Video struct {
	ID          string               `json:"id"`
	Params      utils.DownloadParams `json:"params"`
	Status      utils.DownloadStatus `json:"status"`
	CreatedTime time.Time            `json:"createdTime"`
	UpdatedTime time.Time            `json:"updatedTime"`
}

func (v Video) Task() utils.Task {
	return utils.Task{ID: v.ID, Params: v.Params, Status: v.Status}
}

type VideoRepository struct {
	db *sql.DB
}

func (r *VideoRepository) Close() error {
	return r.db.Close()
}

func (r *VideoRepository) InitTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		url TEXT NOT NULL,
		local TEXT NOT NULL,
		name TEXT,
		headers TEXT,
		delete_segments INTEGER NOT NULL DEFAULT 0,
		proxy TEXT,
		status TEXT NOT NULL,
		created_time DATETIME,
		updated_time DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_videos_status ON videos(status);
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

func (r *VideoRepository) Create(ctx context.Context, task utils.Task) error {
	now := time.Now().UTC()
	status := task.Status
	if status == "" {
		status = utils.StatusQueued
	}
	query := `INSERT INTO videos (id, type, url, local, name, headers, delete_segments, proxy, status, created_time, updated_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		task.ID, string(task.Params.Type), task.Params.URL, task.Params.Local, task.Params.Name,
		task.Params.Headers, task.Params.DeleteSegments, task.Params.Proxy, string(status), now, now)
	if err != nil {
		return fmt.Errorf("error inserting task %s: %w", task.ID, err)
	}
	return nil
}

// ChangeStatus moves id to status. Unknown ids yield ErrNotFound and moves
// out of a terminal status yield ErrInvalidTransition.
func (r *VideoRepository) ChangeStatus(ctx context.Context, id string, status utils.DownloadStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM videos WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	if !utils.DownloadStatus(current).CanTransition(status) {
		return fmt.Errorf("%w: %s from %s to %s", ErrInvalidTransition, id, current, status)
	}
	query := `UPDATE videos SET status = ?, updated_time = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query, string(status), time.Now().UTC(), id); err != nil {
		return fmt.Errorf("error updating task %s: %w", id, err)
	}
	return tx.Commit()
}

const selectColumns = `SELECT id, type, url, local, name, headers, delete_segments, proxy, status, created_time, updated_time FROM videos`

func (r *VideoRepository) Get(ctx context.Context, id string) (*Video, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return video, nil
}

// List returns tasks newest first, optionally filtered by status.
func (r *VideoRepository) List(ctx context.Context, status utils.DownloadStatus) ([]Video, error) {
	query := selectColumns
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_time DESC, rowid DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *video)
	}
	return videos, rows.Err()
}

// MarkInterrupted moves tasks left queued or downloading by a previous run
// to stopped and returns how many rows changed.
func (r *VideoRepository) MarkInterrupted(ctx context.Context) (int64, error) {
	query := `UPDATE videos SET status = ?, updated_time = ? WHERE status IN (?, ?)`
	res, err := r.db.ExecContext(ctx, query, string(utils.StatusStopped), time.Now().UTC(),
		string(utils.StatusQueued), string(utils.StatusDownloading))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(s scanner) (*Video, error) {
	var (
		video                Video
		videoType, status    string
		name, headers, proxy sql.NullString
		deleteSegments       bool
	)
	err := s.Scan(&video.ID, &videoType, &video.Params.URL, &video.Params.Local, &name, &headers,
		&deleteSegments, &proxy, &status, &video.CreatedTime, &video.UpdatedTime)
	if err != nil {
		return nil, err
	}
	video.Params.Type = utils.DownloadType(videoType)
	video.Params.Name = name.String
	video.Params.Headers = headers.String
	video.Params.Proxy = proxy.String
	video.Params.DeleteSegments = deleteSegments
	video.Status = utils.DownloadStatus(status)
	return &video, nil
}
