package protocol

import "github.com/DoyleJ11/sketch-duel/internal/canvas"

const (
	// maxPointBytes is the longest `{"x":..,"y":..},` encoding/json emits
	// for a point with float64 coordinates.
	maxPointBytes = 64
	envelopeBytes = 1 << 10

	// MaxFrameBytes is the websocket read limit on both ends. It fits a
	// stroke of twice MaxStrokePoints, so an overlong stroke still decodes
	// and is rejected with an error frame instead of dropping the link.
	MaxFrameBytes = 2*canvas.MaxStrokePoints*maxPointBytes + envelopeBytes
)
