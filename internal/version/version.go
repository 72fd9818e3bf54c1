// Package version provides build and version information for LoreCrafter.
package version

// Version is the current release version of LoreCrafter.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/lorecrafter/internal/version.Version=x.y.z"
var Version = "0.3.0"

// UserAgent identifies outbound HTTP calls to LLM providers.
func UserAgent() string {
	return "lorecrafter/" + Version
}
