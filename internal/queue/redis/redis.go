package redis

import (
	"sync"

	"github.com/go-redis/redis"

	"github.com/votingapp/ballot-box/pkg/ballotbox"
)

type redisQueue struct {
	client *redis.Client
	key    string

	mutex  sync.Mutex
	closed bool
}

func New(client *redis.Client, key string) ballotbox.Queue {
	return &redisQueue{
		client: client,
		key:    key,
	}
}

func (r *redisQueue) Push(token string) error {
	if r.isClosed() {
		return ballotbox.ErrClosed
	}

	return r.client.LPush(r.key, token).Err()
}

func (r *redisQueue) Pop() (string, error) {
	if r.isClosed() {
		return "", ballotbox.ErrClosed
	}

	result, err := r.client.BRPop(0, r.key).Result()
	if err != nil {
		if r.isClosed() {
			return "", ballotbox.ErrClosed
		}

		return "", err
	}

	// BRPOP replies with the list name followed by the popped value.
	return result[1], nil
}

func (r *redisQueue) Ping() error {
	if r.isClosed() {
		return ballotbox.ErrClosed
	}

	return r.client.Ping().Err()
}

func (r *redisQueue) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	return r.client.Close()
}

func (r *redisQueue) isClosed() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.closed
}
