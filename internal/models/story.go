// Package models defines the wire-level story record shared by the server
// and the client. The JSON form is the subscription snapshot contract.
package models

import (
	"fmt"
	"time"

	"github.com/syqdur/wedpxres-sub001/internal/common"
)

// MediaType is a closed enum. Records coming off the wire must carry one of
// exactly these two values.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// ParseMediaType validates a wire string against the closed enum.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(s) {
	case MediaTypeImage, MediaTypeVideo:
		return MediaType(s), nil
	}
	return "", fmt.Errorf("%w: unknown media type %q", common.ErrValidation, s)
}

// Story is an ephemeral media post with a fixed 24-hour visibility window.
//
// Views is a set of viewer identities: it never contains duplicates and
// never shrinks. FileName is the blob key used for deletion; it may be
// empty for legacy records whose blob location is unrecoverable.
type Story struct {
	ID        string    `json:"id"`
	MediaURL  string    `json:"mediaUrl"`
	MediaType MediaType `json:"mediaType"`
	UserName  string    `json:"userName"`
	DeviceID  string    `json:"deviceId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Views     []string  `json:"views"`
	FileName  string    `json:"fileName,omitempty"`
}

// Active reports whether the story is still visible at the given instant.
func (s *Story) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// ViewedBy reports whether viewerID is already in the view set.
func (s *Story) ViewedBy(viewerID string) bool {
	for _, v := range s.Views {
		if v == viewerID {
			return true
		}
	}
	return false
}
