package app

import "github.com/kart-io/version"

// GetVersion returns the build's git version for log and stats fields.
// Builds without version stamping report "dev".
func GetVersion() string {
	if v := version.Get().GitVersion; v != "" {
		return v
	}
	return "dev"
}
