//go:build !windows

package runner

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

func start(cmd *exec.Cmd) (*os.File, error) {
	return pty.StartWithSize(cmd, &pty.Winsize{Rows: ptyRows, Cols: ptyCols})
}

func interrupt(p *os.Process) error {
	return p.Signal(syscall.SIGHUP)
}
