package worker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/votingapp/ballot-box/internal/worker"
	"github.com/votingapp/ballot-box/pkg/ballotbox"
)

const (
	CHOICE  = "cats"
	UNKNOWN = "birds"
)

type WorkerTestSuite struct {
	suite.Suite

	queue  *ballotbox.Mock_Queue
	store  *ballotbox.Mock_TallyStore
	worker ballotbox.Worker
}

func TestWorkerTestSuite(t *testing.T) {
	suite.Run(t, new(WorkerTestSuite))
}

func (s *WorkerTestSuite) TestStartShouldRetryUntilStoreIsReachable() {
	s.store.On("Ping").Once().Return(errors.New("connection refused"))
	s.store.On("Ping").Return(nil)
	s.store.On("EnsureSchema").Return(nil)
	s.applyEndOfQueue()
	s.applyWorker()

	s.Nil(s.worker.Start())
	s.store.AssertNumberOfCalls(s.T(), "Ping", 2)

	s.applyClose()
}

func (s *WorkerTestSuite) TestStartShouldRetryIfSchemaCreationFails() {
	s.store.On("Ping").Return(nil)
	s.store.On("EnsureSchema").Once().Return(errors.New("table is locked"))
	s.store.On("EnsureSchema").Return(nil)
	s.applyEndOfQueue()
	s.applyWorker()

	s.Nil(s.worker.Start())
	s.store.AssertNumberOfCalls(s.T(), "EnsureSchema", 2)

	s.applyClose()
}

func (s *WorkerTestSuite) TestStartOnClosedWorkerShouldReturnErrClosed() {
	s.applyWorker()
	s.applyClose()

	s.Equal(ballotbox.ErrClosed, s.worker.Start())
}

func (s *WorkerTestSuite) TestWorkerShouldCountValidBallot() {
	s.applyHealthyStore()
	s.queue.On("Pop").Once().Return(CHOICE, nil)
	s.applyEndOfQueue()
	s.store.On("Increment", CHOICE).Once().Return(nil)
	s.applyWorker()

	s.Nil(s.worker.Start())
	time.Sleep(100 * time.Millisecond)

	s.applyClose()
	s.store.AssertExpectations(s.T())
}

func (s *WorkerTestSuite) TestWorkerShouldCountBacklogAfterStoreComesUp() {
	s.store.On("Ping").Once().Return(errors.New("connection refused"))
	s.store.On("Ping").Once().Return(errors.New("connection refused"))
	s.store.On("Ping").Return(nil)
	s.store.On("EnsureSchema").Return(nil)
	s.queue.On("Pop").Once().Return("cats", nil)
	s.queue.On("Pop").Once().Return("cats", nil)
	s.queue.On("Pop").Once().Return("dogs", nil)
	s.applyEndOfQueue()
	s.store.On("Increment", "cats").Return(nil)
	s.store.On("Increment", "dogs").Return(nil)
	s.applyWorker()

	s.Nil(s.worker.Start())
	time.Sleep(100 * time.Millisecond)

	s.applyClose()
	s.store.AssertNumberOfCalls(s.T(), "Ping", 3)
	s.store.AssertNumberOfCalls(s.T(), "Increment", 3)
}

func (s *WorkerTestSuite) TestWorkerShouldSkipTokenOutsideChoiceSet() {
	s.applyHealthyStore()
	s.queue.On("Pop").Once().Return(UNKNOWN, nil)
	s.applyEndOfQueue()
	s.applyWorker()

	s.Nil(s.worker.Start())
	time.Sleep(100 * time.Millisecond)

	s.applyClose()
	s.store.AssertNotCalled(s.T(), "Increment", UNKNOWN)
}

func (s *WorkerTestSuite) TestWorkerShouldDropBallotWhenIncrementFails() {
	s.applyHealthyStore()
	s.queue.On("Pop").Once().Return("cats", nil)
	s.queue.On("Pop").Once().Return("dogs", nil)
	s.applyEndOfQueue()
	s.store.On("Increment", "cats").Once().Return(errors.New("insert failed"))
	s.store.On("Increment", "dogs").Once().Return(nil)
	s.applyWorker()

	s.Nil(s.worker.Start())
	time.Sleep(200 * time.Millisecond)

	s.applyClose()
	s.store.AssertExpectations(s.T())
	s.store.AssertNumberOfCalls(s.T(), "Increment", 2)
}

func (s *WorkerTestSuite) TestWorkerShouldKeepDrainingAfterPopError() {
	s.applyHealthyStore()
	s.queue.On("Pop").Once().Return("", errors.New("connection reset"))
	s.queue.On("Pop").Once().Return(CHOICE, nil)
	s.applyEndOfQueue()
	s.store.On("Increment", CHOICE).Once().Return(nil)
	s.applyWorker()

	s.Nil(s.worker.Start())
	time.Sleep(200 * time.Millisecond)

	s.applyClose()
	s.store.AssertExpectations(s.T())
}

func (s *WorkerTestSuite) TestCloseShouldUnblockWorkerWaitingOnPop() {
	s.applyHealthyStore()

	popReleased := make(chan struct{})
	s.queue.On("Pop").Run(func(args mock.Arguments) {
		<-popReleased
	}).Return("", ballotbox.ErrClosed)
	s.queue.On("Close").Once().Run(func(args mock.Arguments) {
		close(popReleased)
	}).Return(nil)
	s.store.On("Close").Once().Return(nil)
	s.applyWorker()

	s.Nil(s.worker.Start())
	s.Nil(s.worker.Close())
}

func (s *WorkerTestSuite) TestCloseShouldCloseQueueAndStoreOnce() {
	s.applyWorker()
	s.applyClose()

	s.Nil(s.worker.Close())
	s.queue.AssertNumberOfCalls(s.T(), "Close", 1)
	s.store.AssertNumberOfCalls(s.T(), "Close", 1)
}

func (s *WorkerTestSuite) applyWorker(options ...worker.Option) {
	options = append(options,
		worker.WithConnectBackoff(10*time.Millisecond),
		worker.WithErrorBackoff(10*time.Millisecond))

	s.worker = worker.New(s.queue, s.store, ballotbox.DefaultChoices(), options...)
}

func (s *WorkerTestSuite) applyHealthyStore() {
	s.store.On("Ping").Return(nil)
	s.store.On("EnsureSchema").Return(nil)
}

func (s *WorkerTestSuite) applyEndOfQueue() {
	s.queue.On("Pop").Return("", ballotbox.ErrClosed)
}

func (s *WorkerTestSuite) applyClose() {
	s.queue.On("Close").Return(nil)
	s.store.On("Close").Return(nil)
	s.Nil(s.worker.Close())
}

func (s *WorkerTestSuite) SetupTest() {
	s.queue = &ballotbox.Mock_Queue{}
	s.store = &ballotbox.Mock_TallyStore{}
}
