//go:build windows

package runner

import (
	"os"
	"os/exec"
)

// Windows has no pty support in creack/pty; output is read from a pipe.
func start(cmd *exec.Cmd) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	w.Close()
	return r, nil
}

func interrupt(p *os.Process) error {
	return p.Kill()
}
