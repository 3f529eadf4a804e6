package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CheckEncoder reports whether the configured encoder binary resolves and
// answers -version. The first line of the version banner becomes the detail.
func CheckEncoder(ctx context.Context, binary string) Status {
	status := CheckBinary(Requirement{
		Name:        "Encoder",
		Command:     binary,
		Description: "Required for rendition encoding",
	})
	if !status.Available {
		return status
	}

	versionCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(versionCtx, status.Resolved, "-version").Output()
	if err != nil {
		status.Available = false
		status.Detail = fmt.Sprintf("%s -version failed: %v", status.Resolved, err)
		return status
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		status.Detail = strings.TrimSpace(scanner.Text())
	}
	return status
}
