// Package apibase resolves the API base URL the dashboard should talk
// to. The dashboard ships as static files and can be served from the
// backend itself, a hosting platform, or a developer's machine, so the
// base URL depends on where the page was loaded from. Resolution is a
// pure function of its inputs.
package apibase

import "strings"

const (
	// renderSuffix marks hostnames provisioned by the hosting platform
	renderSuffix = ".onrender.com"

	// legacyHost is the fixed IP the dashboard was served from before
	// the move to platform hosting. Still reachable by old bookmarks.
	legacyHost = "13.126.47.10"

	// localDefault is the dev server address
	localDefault = "http://localhost:8080"
)

// Inputs holds the signals available to the resolver. All fields are
// optional, empty values fall through to the next rule.
type Inputs struct {
	// EnvOverride is an explicit base URL from configuration
	EnvOverride string
	// PageHost is the hostname the dashboard page was loaded from
	PageHost string
	// PageOrigin is the full origin of the dashboard page
	PageOrigin string
}

// Resolve picks the API base URL. Rules in priority order: explicit
// override, platform hostname, legacy fixed IP, localhost development,
// page origin. Never returns an empty string and never a trailing slash.
func Resolve(in Inputs) string {
	if in.EnvOverride != "" {
		return strings.TrimRight(in.EnvOverride, "/")
	}

	host := strings.ToLower(in.PageHost)

	if strings.HasSuffix(host, renderSuffix) {
		return "https://" + host
	}

	if host == legacyHost {
		return "http://" + legacyHost + ":8000"
	}

	if host == "localhost" || host == "127.0.0.1" {
		return localDefault
	}

	if in.PageOrigin != "" {
		return strings.TrimRight(in.PageOrigin, "/")
	}

	return localDefault
}
