package ballotbox

import "io"

// Queue carries ballot tokens from the intake to the worker in FIFO order.
// Pop blocks until a token is available or the queue is closed, in which
// case it returns ErrClosed.
type Queue interface {
	io.Closer

	Push(token string) error
	Pop() (string, error)
	Ping() error
}
