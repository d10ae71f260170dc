//go:build windows

package cancel

import (
	"os/exec"
	"strconv"
)

// setProcessGroup is a no-op on Windows; taskkill /T walks the child tree.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills pid and its descendants.
func killProcessGroup(pid int) error {
	return exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}

// sweepMediaTool kills stray ffmpeg processes the extractor may have left
// behind. Best-effort: failure is ignored, and on shared machines this can
// hit unrelated ffmpeg instances.
func sweepMediaTool() {
	_ = exec.Command("taskkill", "/F", "/IM", "ffmpeg.exe", "/T").Run()
}
