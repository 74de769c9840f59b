// Package deps reports the availability of external binaries mediasync
// shells out to.
//
// Capabilities is constructed explicitly at startup and passed into the
// engines that need it; nothing in this package memoizes lookup results in a
// package global, so a binary installed mid-run is picked up by the next
// check.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency mediasync relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Capabilities gates the subsystems that invoke external tools.
type Capabilities struct {
	FFmpegBinary  string
	FFprobeBinary string
	FFmpeg        bool
	FFprobe       bool
}

// Probe checks the configured ffmpeg/ffprobe binaries and returns the
// resulting capability set.
func Probe(ffmpegBinary, ffprobeBinary string) Capabilities {
	caps := Capabilities{
		FFmpegBinary:  ffmpegBinary,
		FFprobeBinary: ffprobeBinary,
	}
	if _, err := exec.LookPath(ffmpegBinary); err == nil {
		caps.FFmpeg = true
	}
	if _, err := exec.LookPath(ffprobeBinary); err == nil {
		caps.FFprobe = true
	}
	return caps
}

// CanNormalize reports whether orientation normalization can run at all.
func (c Capabilities) CanNormalize() bool {
	return c.FFmpeg && c.FFprobe
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Requirements returns the binaries the daemon wants at startup.
func Requirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{Name: "ffmpeg", Command: ffmpegBinary, Description: "orientation normalization and thumbnail derivation"},
		{Name: "ffprobe", Command: ffprobeBinary, Description: "rotation probing"},
	}
}
