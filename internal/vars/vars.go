// Package vars holds build-time variables populated via the linker (ldflags).
package vars

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"text/tabwriter"
	"time"
)

// License of the project
const License = "AGPL-3.0"

// Set with -ldflags "-X github.com/woozymasta/lobby/internal/vars.Version=v1.2.3 ..."
var (
	Name    = "Lobby"
	Version = "dev"
	Commit  = "unknown"
	URL     = "https://github.com/woozymasta/lobby"

	// Revision is the count of commits, BuildTime the RFC3339 UTC build start.
	// Both are parsed from their string forms at init.
	Revision  = 0
	BuildTime = time.Unix(0, 0).UTC()

	_revision  string
	_buildTime string
)

// started is the process start, reported as uptime.
var started = time.Now()

// BuildInfo is the public build and runtime description served on /version.
type BuildInfo struct {
	BuildTime   time.Time `json:"build_time"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Commit      string    `json:"commit"`
	CommitShort string    `json:"commit_short"`
	GoVersion   string    `json:"go_version"`
	URL         string    `json:"url,omitempty"`
	License     string    `json:"license,omitempty"`
	Uptime      string    `json:"uptime"`
	Revision    int       `json:"revision"`
}

func init() {
	if n, err := strconv.Atoi(_revision); err == nil {
		Revision = n
	}

	if t, err := time.Parse(time.RFC3339, _buildTime); err == nil {
		BuildTime = t.UTC()
	}
}

// Print writes the build information to the standard output.
func Print() {
	Fprint(os.Stdout)
}

// Fprint writes the build information to w as aligned key/value lines.
func Fprint(w io.Writer) {
	info := Info()
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	for _, kv := range [][2]string{
		{"name", info.Name},
		{"url", info.URL},
		{"file", os.Args[0]},
		{"version", info.Version},
		{"commit", info.Commit},
		{"revision", strconv.Itoa(info.Revision)},
		{"built", info.BuildTime.Format(time.RFC3339)},
		{"go", info.GoVersion},
		{"license", info.License},
	} {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", kv[0], kv[1])
	}

	_ = tw.Flush()
}

// Info returns a BuildInfo struct containing detailed build metadata.
func Info() BuildInfo {
	return BuildInfo{
		Name:        Name,
		Version:     Version,
		Commit:      Commit,
		CommitShort: CommitShort(),
		Revision:    Revision,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
		URL:         URL,
		License:     License,
		Uptime:      time.Since(started).Truncate(time.Second).String(),
	}
}

// CommitShort returns the first 7 characters of the git commit hash.
func CommitShort() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}

	return Commit
}
