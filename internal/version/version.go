// In file: internal/version/version.go

// Package version carries the build metadata and the component versions that
// are folded into recommendation cache keys.
//
// Bumping a component version (or changing the wardrobe corpus, whose content
// hash is passed in at runtime) produces new cache keys, so stale packing
// lists are never served after the logic that produced them changed.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
)

// Set via -ldflags "-X github.com/dileep-u-k/tempusvestis/internal/version.Version=..."
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// ComponentVersions holds the version strings for the logical parts of the
// pipeline. Increment one before deploying a change to that component.
var ComponentVersions = struct {
	// Tools covers the date and weather tools and the forecast formatting.
	Tools string

	// Prompts covers the system prompt, the RAG template and the chain logic.
	Prompts string
}{
	Tools:   "v1.0",
	Prompts: "v1.0",
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// GenerateVersionedCacheKey creates a version-aware cache key for a
// recommendation. parts are hashed together (typically the normalized query
// and the date it was asked on) and knowledgeVersion identifies the corpus.
//
// Example output: "recommendation:a1b2c3d4...:tv1.0_pv1.0_k3f9e01aa"
func GenerateVersionedCacheKey(prefix, knowledgeVersion string, parts ...string) string {
	hasher := sha256.New()
	hasher.Write([]byte(strings.Join(parts, "\x00")))
	hash := hex.EncodeToString(hasher.Sum(nil))

	versionString := fmt.Sprintf("tv%s_pv%s_k%s",
		ComponentVersions.Tools,
		ComponentVersions.Prompts,
		knowledgeVersion,
	)
	return fmt.Sprintf("%s:%s:%s", prefix, hash, versionString)
}
