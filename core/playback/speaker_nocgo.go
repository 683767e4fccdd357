//go:build !((linux && cgo) || windows || darwin)

package playback

import "net/http"

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries.
const AudioAvailable = false

// SpeakerPrimitive is unavailable without cgo; use NewNullPrimitive instead.
type SpeakerPrimitive struct {
	NullPrimitive
}

// NewSpeakerPrimitive always fails when cgo is disabled.
func NewSpeakerPrimitive(_ *http.Client) (*SpeakerPrimitive, error) {
	return nil, ErrAudioUnavailable
}
