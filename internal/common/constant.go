package common

import "time"

const (
	// StoryTTL is the fixed visibility window of a story. ExpiresAt is
	// always CreatedAt + StoryTTL, computed once at creation.
	StoryTTL = 24 * time.Hour

	// MaxUploadSize is the largest accepted media payload, in bytes.
	MaxUploadSize = 100 << 20

	// DeviceIDHeaderName carries the caller's stable device identity.
	DeviceIDHeaderName = "X-Device-ID"
)
