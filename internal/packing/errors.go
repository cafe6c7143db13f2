package packing

import "errors"

var (
	// ErrInvalidDimension is returned when a canvas or rectangle dimension is not positive.
	ErrInvalidDimension = errors.New("dimensions must be positive integers")
	// ErrDuplicateID is returned when placing a rectangle whose id is already on the canvas.
	ErrDuplicateID = errors.New("rectangle id is already placed")
)
