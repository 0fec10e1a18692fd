package main

import (
	"context"
	"errors"
	"net"
	"strings"

	"chapel/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: set CHAPEL_API_TOKEN to the token the server was started with.")
		case "resource_exhausted":
			lines = append(lines, "hint: retry shortly or reduce concurrent heavy requests (import/export/search).")
		case "unavailable":
			lines = append(lines,
				"hint: the database could not be reached; check CHAPEL_DB and file permissions.",
				"hint: a bolt database allows one server at a time; stop other chapel processes.",
			)
		case "invalid_argument":
			if strings.Contains(apiErr.Message, "category") {
				lines = append(lines, "hint: categories are meditation, tutorial and news.")
			}
		}
		if api.IsNotFound(err) && apiErr.Code == "not_found" {
			lines = append(lines, "hint: list existing posts with: chapel list")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify CHAPEL_API_URL points to a chapel server.")
		}
		if apiErr.Status >= 500 && apiErr.Code != "unavailable" {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase CHAPEL_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a chapel server is running at CHAPEL_API_URL.",
			"hint: start local server manually with: chapel srv",
			"hint: you can increase CHAPEL_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
