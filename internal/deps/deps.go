// Package deps resolves the external binaries a worker shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary and why it is needed.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports whether a requirement resolved. Command keeps the configured
// value; Resolved holds the absolute path found on PATH.
type Status struct {
	Requirement
	Resolved  string
	Available bool
	Detail    string
}

// CheckBinary resolves a single requirement.
func CheckBinary(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Resolved = resolved
	status.Available = true
	return status
}

// CheckBinaries resolves each requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, CheckBinary(req))
	}
	return results
}
