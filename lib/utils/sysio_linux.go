//go:build linux

package utils

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// AdviseSequential tells the kernel f will be read front to back once.
func AdviseSequential(f *os.File) error {
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

// KillWithParent makes cmd receive SIGTERM when we die.
func KillWithParent(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}
