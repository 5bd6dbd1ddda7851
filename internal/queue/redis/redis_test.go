package redis_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/suite"

	redisQueue "github.com/votingapp/ballot-box/internal/queue/redis"
	"github.com/votingapp/ballot-box/pkg/ballotbox"
)

const (
	KEY   = "votes"
	VALUE = "cats"
)

type RedisQueueTestSuite struct {
	suite.Suite

	db    *miniredis.Miniredis
	queue ballotbox.Queue
}

func TestRedisQueueTestSuite(t *testing.T) {
	suite.Run(t, new(RedisQueueTestSuite))
}

func (s *RedisQueueTestSuite) TestPushShouldAppendTokenToList() {
	s.Nil(s.queue.Push(VALUE))
	list, err := s.db.List(KEY)
	s.Nil(err)
	s.Equal([]string{VALUE}, list)
}

func (s *RedisQueueTestSuite) TestPushOnClosedQueueShouldReturnErrClosed() {
	s.Nil(s.queue.Close())
	s.Equal(ballotbox.ErrClosed, s.queue.Push(VALUE))
}

func (s *RedisQueueTestSuite) TestPopShouldReturnTokensInPushOrder() {
	s.Nil(s.queue.Push("cats"))
	s.Nil(s.queue.Push("dogs"))

	first, err := s.queue.Pop()
	s.Nil(err)
	s.Equal("cats", first)

	second, err := s.queue.Pop()
	s.Nil(err)
	s.Equal("dogs", second)
}

func (s *RedisQueueTestSuite) TestPopShouldRemoveTokenFromList() {
	s.Nil(s.queue.Push(VALUE))

	_, err := s.queue.Pop()
	s.Nil(err)
	s.False(s.db.Exists(KEY))
}

func (s *RedisQueueTestSuite) TestPopShouldBlockUntilTokenArrives() {
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.Nil(s.queue.Push(VALUE))
	}()

	result, err := s.queue.Pop()
	s.Nil(err)
	s.Equal(VALUE, result)
}

func (s *RedisQueueTestSuite) TestPopOnClosedQueueShouldReturnErrClosed() {
	s.Nil(s.queue.Close())
	_, err := s.queue.Pop()
	s.Equal(ballotbox.ErrClosed, err)
}

func (s *RedisQueueTestSuite) TestCloseShouldUnblockPendingPop() {
	errs := make(chan error, 1)

	go func() {
		_, err := s.queue.Pop()
		errs <- err
	}()

	time.Sleep(100 * time.Millisecond)
	s.Nil(s.queue.Close())
	s.Equal(ballotbox.ErrClosed, <-errs)
}

func (s *RedisQueueTestSuite) TestPingShouldSucceedOnHealthyServer() {
	s.Nil(s.queue.Ping())
}

func (s *RedisQueueTestSuite) TestPingShouldFailOnStoppedServer() {
	s.db.Close()
	s.NotNil(s.queue.Ping())
}

func (s *RedisQueueTestSuite) TestPingOnClosedQueueShouldReturnErrClosed() {
	s.Nil(s.queue.Close())
	s.Equal(ballotbox.ErrClosed, s.queue.Ping())
}

func (s *RedisQueueTestSuite) SetupTest() {
	var err error

	s.db, err = miniredis.Run()
	if err != nil {
		s.FailNow("failed to create miniredis db")
	}

	client := redis.NewClient(&redis.Options{Addr: s.db.Addr()})

	s.queue = redisQueue.New(client, KEY)
}

func (s *RedisQueueTestSuite) TearDownTest() {
	err := s.queue.Close()
	if err != nil {
		s.FailNow("failed to close queue")
	}

	s.db.Close()
}
