package sqlstore

import (
	"database/sql"
	"sync"

	"github.com/votingapp/ballot-box/pkg/ballotbox"
)

// Statements stick to the shared subset of the postgres and sqlite dialects,
// so the store runs unchanged on either driver.
const (
	createTableStatement = `CREATE TABLE IF NOT EXISTS votes (option TEXT PRIMARY KEY, count INTEGER NOT NULL DEFAULT 0)`
	incrementStatement   = `INSERT INTO votes (option, count) VALUES ($1, 1) ON CONFLICT (option) DO UPDATE SET count = votes.count + 1`
	countsStatement      = `SELECT option, count FROM votes`
)

type sqlStore struct {
	db *sql.DB

	mutex  sync.Mutex
	closed bool
}

func New(db *sql.DB) ballotbox.TallyStore {
	return &sqlStore{
		db: db,
	}
}

func (s *sqlStore) Ping() error {
	if s.isClosed() {
		return ballotbox.ErrClosed
	}

	return s.db.Ping()
}

func (s *sqlStore) EnsureSchema() error {
	if s.isClosed() {
		return ballotbox.ErrClosed
	}

	_, err := s.db.Exec(createTableStatement)
	return err
}

func (s *sqlStore) Increment(choice string) error {
	if s.isClosed() {
		return ballotbox.ErrClosed
	}

	_, err := s.db.Exec(incrementStatement, choice)
	return err
}

func (s *sqlStore) Counts() (map[string]int64, error) {
	if s.isClosed() {
		return nil, ballotbox.ErrClosed
	}

	rows, err := s.db.Query(countsStatement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var choice string
		var count int64

		if err := rows.Scan(&choice, &count); err != nil {
			return nil, err
		}

		counts[choice] = count
	}

	return counts, rows.Err()
}

func (s *sqlStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.db.Close()
}

func (s *sqlStore) isClosed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.closed
}
