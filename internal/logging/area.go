// ABOUTME: Area detection for request logging.
// ABOUTME: Groups request paths into the editor, api, page, and ws areas.

package logging

import "strings"

// AreaFromPath determines which part of the server handles a given path
func AreaFromPath(path string) string {
	switch {
	case path == "/editor/ws":
		return "ws"
	case strings.HasPrefix(path, "/editor/"):
		return "editor"
	case strings.HasPrefix(path, "/api/"):
		return "api"
	case path == "/":
		return "page"
	default:
		return "unknown"
	}
}
