package ballotbox

import "io"

// TallyStore keeps one running counter per choice. Increment applies a single
// accepted ballot; Counts returns a snapshot of every counter present.
type TallyStore interface {
	io.Closer

	Ping() error
	EnsureSchema() error
	Increment(choice string) error
	Counts() (map[string]int64, error)
}
