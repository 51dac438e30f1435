package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the release of the abrsqol binaries.
	Version = "0.3.0"

	// Model names the inversion implemented by the solver.
	Model = "ABRSQOL"

	// APIVersion is the version of the HTTP and stream contracts
	APIVersion = "v1"
)

// Stamped by build.go through -ldflags "-X abrsqol/pkg/contracts.Name=value".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

// VersionInfo is served by GET /version.
type VersionInfo struct {
	Version    string `json:"version"`
	Model      string `json:"model"`
	APIVersion string `json:"api_version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GitBranch  string `json:"git_branch"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		Model:      Model,
		APIVersion: APIVersion,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GitBranch:  GitBranch,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetVersionString returns "abrsqol vX.Y.Z".
func GetVersionString() string {
	return "abrsqol v" + Version
}

// GetFullVersionString adds build metadata to GetVersionString, for -version
// flags and startup logs.
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s (%s, commit %s on %s, built %s, %s, %s)",
		GetVersionString(), info.Model, info.GitCommit, info.GitBranch,
		info.BuildTime, info.GoVersion, info.Platform)
}
