//go:build !linux

package utils

import (
	"os"
	"os/exec"
)

func AdviseSequential(f *os.File) error {
	return nil
}

func KillWithParent(cmd *exec.Cmd) {}
