// Package deps checks the external binaries the pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Pipeline lists the binaries a full run needs, resolved from the configured
// tool paths.
func Pipeline(ffmpeg, ffprobe, demucs string) []Requirement {
	return []Requirement{
		{Name: "ffmpeg", Command: ffmpeg, Description: "demux, trim, mix, burn"},
		{Name: "ffprobe", Command: ffprobe, Description: "media inspection"},
		{Name: "demucs", Command: demucs, Description: "vocal separation"},
	}
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

// FirstMissing returns an error naming every unavailable required binary, or
// nil when all required binaries resolve.
func FirstMissing(statuses []Status) error {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, fmt.Sprintf("%s (%s)", s.Name, s.Detail))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required binaries: %s", strings.Join(missing, ", "))
}
