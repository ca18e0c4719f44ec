package config

// Build metadata injected at compile time via -ldflags:
//
//	go build -ldflags "-X dttools/internal/config.version=1.2.3 \
//	    -X dttools/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X dttools/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Local builds without ldflags report version "dev".
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo snapshots the linker-injected values into the Config.Build
// field during startup.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}
