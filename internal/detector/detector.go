// Package detector obtains facial expression scores for a camera frame.
package detector

import (
	"context"
	"errors"

	"github.com/justestif/moodtube/internal/mood"
)

// ErrEmptyFrame is returned when a frame carries no image data.
var ErrEmptyFrame = errors.New("empty frame")

// Frame is a single still image captured from the camera.
type Frame struct {
	Data        []byte
	ContentType string // e.g. "image/jpeg"
}

// Empty reports whether the frame has no image data.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Detector returns expression scores for the single most prominent face in a
// frame. It returns nil scores and a nil error when no face is found.
type Detector interface {
	Detect(ctx context.Context, frame Frame) (mood.Scores, error)
}

// Unavailable is a Detector for deployments without an expression service.
// It never finds a face, so every cycle takes the fallback query path.
type Unavailable struct{}

// Detect always reports no face.
func (Unavailable) Detect(context.Context, Frame) (mood.Scores, error) {
	return nil, nil
}

// Func adapts an ordinary function to the Detector interface.
type Func func(ctx context.Context, frame Frame) (mood.Scores, error)

// Detect calls f.
func (f Func) Detect(ctx context.Context, frame Frame) (mood.Scores, error) {
	return f(ctx, frame)
}

var (
	_ Detector = Unavailable{}
	_ Detector = Func(nil)
	_ Detector = (*HTTPDetector)(nil)
)
