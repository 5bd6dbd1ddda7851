package ballotbox

import "io"

// Worker drains the queue into the tally store. Start returns once the worker
// has a healthy store connection and its drain loop is running.
type Worker interface {
	io.Closer

	Start() error
}
