// Package artifact stores the raw MP3 audio produced for each dialogue line.
// Local and S3 both satisfy tts.Sink.
package artifact

import (
	"fmt"
	"strings"
)

// cleanName rejects names that would escape the sink's namespace.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("artifact name is empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return name, nil
}
