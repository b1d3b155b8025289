package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/utils"
)

const (
	ptyCols = 500
	ptyRows = 500

	// abortSignal is SIGHUP, the signal a pty hang-up delivers.
	abortSignal = 1

	// maxLineLength caps one line; longer output is cut into pieces of this size.
	maxLineLength = 1024 * 1024
)

var (
	killGrace    = 5 * time.Second
	drainTimeout = 2 * time.Second
)

type Options struct {
	// OnMessage receives every raw chunk read from the terminal, colors included.
	OnMessage func(chunk string)
	// OnLine receives each line with ANSI sequences removed. A non-nil error
	// stops output handling, kills the process and becomes the result of Run.
	OnLine func(line string) error
}

// Run starts binPath attached to a pseudo-terminal and blocks until it exits.
// Cancelling ctx hangs up the terminal; a process that ends that way yields
// utils.ErrAborted.
func Run(ctx context.Context, binPath string, args []string, opts Options) error {
	if ctx.Err() != nil {
		return utils.ErrAborted
	}
	cmd := exec.Command(binPath, args...)
	cmd.Env = append(os.Environ(), "TERM=xterm-color")
	log.Debug().Str("op", "runner/run").Msgf("Executing command: %s", cmd.String())

	out, err := start(cmd)
	if err != nil {
		log.Error().Str("op", "runner/run").Err(err).Msgf("Error starting %s", filepath.Base(binPath))
		return fmt.Errorf("error starting %s: %w", filepath.Base(binPath), err)
	}
	defer out.Close()

	readErr := make(chan error, 1)
	go func() {
		readErr <- stream(out, opts)
	}()
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	var (
		outputErr error
		cancelled bool
		readCh    = readErr
		done      = ctx.Done()
		killTimer <-chan time.Time
	)
loop:
	for {
		select {
		case <-done:
			done = nil
			cancelled = true
			log.Debug().Str("op", "runner/run").Msgf("Hanging up %s (pid %d)", filepath.Base(binPath), cmd.Process.Pid)
			if err := interrupt(cmd.Process); err != nil {
				cmd.Process.Kill()
			} else {
				killTimer = time.After(killGrace)
			}
		case <-killTimer:
			killTimer = nil
			log.Warn().Str("op", "runner/run").Msgf("%s ignored hang-up, killing", filepath.Base(binPath))
			cmd.Process.Kill()
		case err := <-readCh:
			readCh = nil
			if err != nil {
				outputErr = err
				cmd.Process.Kill()
			}
		case <-waitErr:
			break loop
		}
	}

	if readCh != nil {
		select {
		case err := <-readCh:
			if err != nil {
				outputErr = err
			}
		case <-time.After(drainTimeout):
			out.Close()
			if err := <-readCh; err != nil {
				outputErr = err
			}
		}
	}

	if outputErr != nil {
		return outputErr
	}
	return exitResult(cmd.ProcessState, cancelled)
}

func exitResult(state *os.ProcessState, cancelled bool) error {
	code := state.ExitCode()
	signal := 0
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		signal = int(ws.Signal())
	}
	return classifyExit(code, signal, cancelled)
}

func classifyExit(code, signal int, cancelled bool) error {
	switch {
	case code == 0 && signal == 0:
		return nil
	case signal == abortSignal:
		return utils.ErrAborted
	case cancelled:
		return utils.ErrAborted
	default:
		return fmt.Errorf("%w (exit code %d, signal %d)", utils.ErrUnknownExit, code, signal)
	}
}

func stream(r io.Reader, opts Options) error {
	src := r
	if opts.OnMessage != nil {
		src = io.TeeReader(r, messageWriter(opts.OnMessage))
	}
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 2*maxLineLength)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := utils.StripColors(scanner.Text())
		if strings.TrimSpace(line) == "" {
			continue
		}
		log.Debug().Str("op", "runner/stream").Msg(line)
		if opts.OnLine != nil {
			if err := opts.OnLine(line); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) && !errors.Is(err, syscall.EIO) {
		log.Debug().Str("op", "runner/stream").Err(err).Msg("Output stream ended with error")
		// the child blocks on a full terminal unless someone keeps reading
		io.Copy(io.Discard, src)
	}
	return nil
}

type messageWriter func(string)

func (w messageWriter) Write(p []byte) (int, error) {
	w(string(p))
	return len(p), nil
}

func dropCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		return data[0 : len(data)-1]
	}
	return data
}

// scanLines splits on '\n' or a bare '\r', since progress bars redraw in place.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, dropCR(data[0:i]), nil
	}
	if atEOF {
		return len(data), dropCR(data), nil
	}
	if len(data) >= maxLineLength {
		return maxLineLength, data[:maxLineLength], nil
	}
	return 0, nil, nil
}
