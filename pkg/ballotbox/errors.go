package ballotbox

import "errors"

var (
	ErrClosed = errors.New("closed")
)
