package stacktrace

import "strings"

// InternalPaths extracts "internal/<pkg>/<file>.go:<line>" frames from a raw
// debug.Stack dump, dropping runtime and third-party frames.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.Lines(string(stack)) {
		line = strings.TrimSpace(line)

		file, _, ok := strings.Cut(line, " +0x")
		if !ok || !strings.Contains(file, ".go:") {
			continue
		}

		if _, rest, found := strings.Cut(file, "/internal/"); found {
			paths = append(paths, "internal/"+rest)
		}
	}
	return paths
}
