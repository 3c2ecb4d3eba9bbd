package types

import "time"

// Version is the application version, overwritten by -ldflags at release time.
var Version = "v0.1.0"

const (
	// ServiceName is reported by the health endpoint and used as log/metric prefix.
	ServiceName = "reelpull"

	// DefaultBackendURL is the hosted downloader backend the web front-end talks to.
	DefaultBackendURL = "https://tiktok-downloader-backend-production-ce2b.up.railway.app"

	// DefaultDelay is the pacing delay between two consecutive download triggers.
	DefaultDelay = time.Second

	// DefaultQuality is passed to the backend download endpoint.
	DefaultQuality = "best"

	// SingleVideoProfile labels downloads that were not discovered through a profile or playlist.
	SingleVideoProfile = "single_video"
)
