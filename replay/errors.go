package replay

import "errors"

// Common errors returned by the playback engine
var (
	ErrLoadFailure            = errors.New("dataset contains no usable entities")
	ErrInvalidSpeed           = errors.New("playback speed must be within the allowed range")
	ErrInvalidTrailLength     = errors.New("trail length must be positive")
	ErrInvalidFrameRate       = errors.New("frame rate must be positive")
	ErrInvalidViewport        = errors.New("viewport dimensions must be positive")
	ErrPlaybackNotRunning     = errors.New("playback loop is not running")
	ErrPlaybackAlreadyRunning = errors.New("playback loop is already running")
	ErrNoDataset              = errors.New("no dataset loaded")
)
