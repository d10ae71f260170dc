//go:build !windows

package cancel

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes cmd the leader of a new process group so its whole
// tree can be signalled at once.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killProcessGroup kills the process group led by pid.
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// sweepMediaTool kills stray ffmpeg processes the extractor may have left
// behind. Best-effort: failure is ignored, and on shared machines this can
// hit unrelated ffmpeg instances.
func sweepMediaTool() {
	_ = exec.Command("pkill", "-9", "-x", "ffmpeg").Run()
}
