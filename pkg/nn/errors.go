package nn

import "errors"

var (
	// ErrInvalidArgument is returned when a caller violates an input contract,
	// such as a non-positive batch size or a threshold outside [0, 1].
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDetectorFailure is returned when the detector fails, or returns output whose
	// shape does not match the batch that was submitted.
	ErrDetectorFailure = errors.New("detector failure")
)
