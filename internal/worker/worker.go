package worker

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/votingapp/ballot-box/pkg/ballotbox"
)

type tallyWorker struct {
	queue   ballotbox.Queue
	store   ballotbox.TallyStore
	choices ballotbox.ChoiceSet

	connectBackoff time.Duration
	errorBackoff   time.Duration

	closed chan struct{}
	mutex  sync.Mutex
	wg     sync.WaitGroup
}

type Option func(w *tallyWorker)

func New(queue ballotbox.Queue,
	store ballotbox.TallyStore,
	choices ballotbox.ChoiceSet,
	options ...Option) ballotbox.Worker {

	result := &tallyWorker{
		queue:          queue,
		store:          store,
		choices:        choices,
		connectBackoff: 2 * time.Second,
		errorBackoff:   1 * time.Second,
		closed:         make(chan struct{}),
	}

	for _, option := range options {
		option(result)
	}

	return result
}

func WithConnectBackoff(backoff time.Duration) Option {
	return func(w *tallyWorker) {
		w.connectBackoff = backoff
	}
}

func WithErrorBackoff(backoff time.Duration) Option {
	return func(w *tallyWorker) {
		w.errorBackoff = backoff
	}
}

func (w *tallyWorker) Start() error {
	if err := w.waitForStore(); err != nil {
		return err
	}

	started := make(chan struct{})
	w.wg.Add(1)
	go w.beginDrain(started)
	<-started

	return nil
}

func (w *tallyWorker) Close() error {
	if closed := w.setClosed(); !closed {
		return nil
	}

	lastErr := w.queue.Close()

	w.wg.Wait()

	if err := w.store.Close(); err != nil {
		if lastErr != nil {
			logrus.WithError(lastErr).Error("unexpected error while closing worker")
		}

		lastErr = err
	}

	return lastErr
}

// waitForStore retries until the tally store answers and carries the votes
// table. There is no retry cap: the worker outwaits store restarts however
// long they take.
func (w *tallyWorker) waitForStore() error {
	for {
		if w.isClosed() {
			return ballotbox.ErrClosed
		}

		err := w.store.Ping()
		if err == nil {
			err = w.store.EnsureSchema()
		}
		if err == nil {
			return nil
		}

		logrus.WithError(err).Info("waiting for tally store")

		select {
		case <-w.closed:
			return ballotbox.ErrClosed

		case <-time.After(w.connectBackoff):
		}
	}
}

func (w *tallyWorker) beginDrain(started chan struct{}) {
	defer w.wg.Done()

	close(started)

	for {
		token, err := w.queue.Pop()
		if err == ballotbox.ErrClosed {
			return
		}

		if err != nil {
			if w.isClosed() {
				return
			}

			logrus.WithError(err).Error("failed to pop ballot")
			w.sleep(w.errorBackoff)
			continue
		}

		w.handle(token)
	}
}

func (w *tallyWorker) handle(token string) {
	if !w.choices.Contains(token) {
		logrus.WithField("token", token).Warn("skipping ballot for unknown choice")

		return
	}

	if err := w.store.Increment(token); err != nil {
		// The token is already off the queue, so this ballot is lost.
		logrus.WithError(err).WithField("choice", token).Error("dropped ballot after failed increment")
		w.sleep(w.errorBackoff)

		return
	}

	logrus.WithField("choice", token).Debug("ballot counted")
}

func (w *tallyWorker) sleep(duration time.Duration) {
	select {
	case <-w.closed:

	case <-time.After(duration):
	}
}

func (w *tallyWorker) setClosed() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.isClosedWithoutLock() {
		return false
	}

	close(w.closed)
	return true
}

func (w *tallyWorker) isClosed() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.isClosedWithoutLock()
}

func (w *tallyWorker) isClosedWithoutLock() bool {
	select {
	case <-w.closed:
		return true

	default:
		return false
	}
}
