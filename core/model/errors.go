package model

import "errors"

// ErrInvalidConfiguration is returned when capacities, target months or other
// inputs would make the computation meaningless.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrDataUnavailable marks a selection for which no usable history exists.
// Planning code reports it as a status rather than returning it.
var ErrDataUnavailable = errors.New("data unavailable")
