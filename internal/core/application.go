package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

type Runnable interface {
	Run(ctx context.Context) error
}

var (
	ErrIsAlreadyStarted = errors.New("is already started")
)

type namedRunnable struct {
	name string
	r    Runnable
}

// Application runs its runnables until all of them return. The first error
// cancels the others; SIGINT and SIGTERM cancel everything.
type Application struct {
	log         logrus.FieldLogger
	runnables   []namedRunnable
	muRunnables sync.Mutex
	isStarted   bool
}

func NewApplication(log logrus.FieldLogger) *Application {
	return &Application{
		log: log,
	}
}

func (appl *Application) Register(name string, r Runnable) {
	appl.muRunnables.Lock()
	defer appl.muRunnables.Unlock()
	appl.runnables = append(appl.runnables, namedRunnable{name: name, r: r})
}

func (appl *Application) Run(ctx context.Context) error {
	appl.muRunnables.Lock()
	if appl.isStarted {
		appl.muRunnables.Unlock()
		return ErrIsAlreadyStarted
	}
	appl.isStarted = true
	runnables := appl.runnables
	appl.muRunnables.Unlock()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	errCh := make(chan error, len(runnables))

	wg := sync.WaitGroup{}
	wg.Add(len(runnables))
	for i := range runnables {
		go appl.startRunnable(ctx, &wg, runnables[i], errCh, cancelFn)
	}
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if first == nil {
			first = err
		}
	}
	return first
}

func (appl *Application) startRunnable(ctx context.Context, wg *sync.WaitGroup, nr namedRunnable, errCh chan<- error, cancelFn context.CancelFunc) {
	defer wg.Done()
	log := appl.log.WithField("runnable", nr.name)

	log.Debug("starting")
	if err := nr.r.Run(ctx); err != nil {
		log.WithError(err).Error("stopped with error")
		errCh <- fmt.Errorf("%s: %w", nr.name, err)
		cancelFn()
		return
	}
	log.Debug("stopped")
}
