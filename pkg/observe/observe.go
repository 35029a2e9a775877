// Package observe reports filesystem events for a single file while a command
// runs, so the create/truncate/write sequence of a whole-file write is visible.
package observe

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/saworbit/ioprimer/internal/logging"
)

// Event is a filesystem event seen on the observed file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Observer watches the directory holding a target file and keeps the events
// that name the target.
type Observer struct {
	target  string
	watcher *fsnotify.Watcher
	log     *logrus.Entry
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	events []Event
}

// Start begins observing target. The parent directory must exist.
func Start(ctx context.Context, target string) (*Observer, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", target)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}

	ctx, cancel := context.WithCancel(ctx)
	o := &Observer{
		target:  abs,
		watcher: watcher,
		log:     logging.For("observe").WithField("path", abs),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go o.loop(ctx)
	return o, nil
}

func (o *Observer) loop(ctx context.Context) {
	defer close(o.done)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != o.target {
				continue
			}
			o.mu.Lock()
			o.events = append(o.events, Event{Path: evt.Name, Op: evt.Op})
			o.mu.Unlock()
			o.log.WithField("op", evt.Op.String()).Info("fs event")
		case err, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
			o.log.WithError(err).Warn("watcher error")
		}
	}
}

// Events returns a copy of the events seen so far.
func (o *Observer) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

// Stop waits for settle so in-flight events are delivered, then stops the
// watcher and returns everything that was seen.
func (o *Observer) Stop(settle time.Duration) []Event {
	if settle > 0 {
		time.Sleep(settle)
	}
	o.cancel()
	<-o.done
	if err := o.watcher.Close(); err != nil {
		o.log.WithError(err).Debug("close watcher")
	}

	events := o.Events()
	o.log.WithField("events", len(events)).Info("observer stopped")
	return events
}
