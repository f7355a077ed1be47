// Package deps reports the availability of the external tools asrsift
// invokes before the pipeline starts, so a missing interpreter or script
// surfaces as a clear configuration error instead of a raw exec failure.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Script      string
	Description string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Description string
	Available   bool
	Detail      string
}

// PipelineRequirements returns the external dependencies of a pipeline run:
// the python interpreter plus both tool scripts under the scripts directory.
func PipelineRequirements(python, scriptsDir string, scripts ...string) []Requirement {
	reqs := []Requirement{
		{Name: "python", Command: python, Description: "interpreter used to launch both tools"},
	}
	for _, script := range scripts {
		reqs = append(reqs, Requirement{
			Name:        script,
			Script:      filepath.Join(scriptsDir, script),
			Description: "pipeline tool script",
		})
	}
	return reqs
}

// Check evaluates the provided requirements and reports availability.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
		}
		switch {
		case req.Command != "":
			if _, err := exec.LookPath(req.Command); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", req.Command)
			} else {
				status.Available = true
			}
		case req.Script != "":
			if info, err := os.Stat(req.Script); err != nil || info.IsDir() {
				status.Detail = fmt.Sprintf("script %q not found", req.Script)
			} else {
				status.Available = true
			}
		default:
			status.Detail = "nothing to check"
		}
		results = append(results, status)
	}
	return results
}

// Missing collapses a status list into an error naming every unavailable
// dependency, or nil when everything is present.
func Missing(statuses []Status) error {
	var details []string
	for _, status := range statuses {
		if !status.Available {
			details = append(details, status.Detail)
		}
	}
	if len(details) == 0 {
		return nil
	}
	return fmt.Errorf("missing dependencies: %s", strings.Join(details, "; "))
}
