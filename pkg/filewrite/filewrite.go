// Package filewrite replaces a file's content with a byte payload in one
// logical step. Two call shapes are offered, an explicit handle that is
// opened, written and closed (WriteAll) and a single convenience call
// (Write). Both go through the same helper and have the same effect: the
// file exists and holds exactly the payload.
package filewrite

import (
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/saworbit/ioprimer/internal/logging"
	"github.com/saworbit/ioprimer/internal/metrics"
	"github.com/saworbit/ioprimer/pkg/config"
	"github.com/saworbit/ioprimer/pkg/contract"
)

// Shape names the call shape used for a write.
type Shape string

const (
	ShapeWriteAll Shape = "write_all"
	ShapeWrite    Shape = "write"
)

const filePerm os.FileMode = 0o644

// ErrEmptyPath is returned when no destination is given.
var ErrEmptyPath = errors.New("empty path")

// Swapped in tests to simulate failures after the file has been created.
var (
	openFile  = os.OpenFile
	writeFile = os.WriteFile
)

// Recorder is told about every completed write.
type Recorder interface {
	Record(path, shape string, data []byte) error
}

// Writer performs whole-file writes under a failure policy.
type Writer struct {
	policy   string
	recorder Recorder
	log      *logrus.Entry
}

// Option configures a Writer.
type Option func(*Writer)

// WithPolicy selects what happens to the target when a write fails.
func WithPolicy(policy string) Option {
	return func(w *Writer) {
		if policy != "" {
			w.policy = policy
		}
	}
}

// WithRecorder attaches a recorder notified after each successful write.
func WithRecorder(r Recorder) Option {
	return func(w *Writer) {
		w.recorder = r
	}
}

// New returns a Writer using the remove policy unless told otherwise.
func New(opts ...Option) *Writer {
	w := &Writer{
		policy: config.PolicyRemove,
		log:    logging.For("filewrite"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Policy reports the failure policy in effect.
func (w *Writer) Policy() string {
	return w.policy
}

// WriteAll creates or truncates path through an explicit handle, writes every
// byte of data and closes the handle.
func (w *Writer) WriteAll(path string, data []byte) error {
	return w.write(path, data, ShapeWriteAll)
}

// Write creates or truncates path and writes data in a single call.
func (w *Writer) Write(path string, data []byte) error {
	return w.write(path, data, ShapeWrite)
}

// CreateFileWriteAll is WriteAll that aborts the process on failure.
func (w *Writer) CreateFileWriteAll(path string, data []byte) {
	w.must(w.WriteAll(path, data), ShapeWriteAll)
}

// CreateFileWrite is Write that aborts the process on failure.
func (w *Writer) CreateFileWrite(path string, data []byte) {
	w.must(w.Write(path, data), ShapeWrite)
}

var std = New()

// CreateFileWriteAll writes data to path with the explicit-handle shape and the
// default policy, aborting the process on failure.
func CreateFileWriteAll(path string, data []byte) {
	std.CreateFileWriteAll(path, data)
}

// CreateFileWrite writes data to path with the one-call shape and the default
// policy, aborting the process on failure.
func CreateFileWrite(path string, data []byte) {
	std.CreateFileWrite(path, data)
}

func (w *Writer) must(err error, shape Shape) {
	if err != nil {
		contract.Failf(contract.ReasonIO, "%s: %v", shape, err)
	}
}

func (w *Writer) write(path string, data []byte, shape Shape) (err error) {
	if path == "" {
		return ErrEmptyPath
	}

	start := time.Now()
	defer func() {
		metrics.ObserveWrite(start, string(shape), len(data), err)
	}()

	log := w.log.WithFields(logrus.Fields{
		"path":   path,
		"shape":  shape,
		"policy": w.policy,
	})

	var created bool
	switch {
	case w.policy == config.PolicyAtomic:
		err = writeAtomic(path, data)
	case shape == ShapeWriteAll:
		created, err = writeAll(path, data)
	default:
		created, err = writeOnce(path, data)
	}

	if err != nil {
		if created && w.policy == config.PolicyRemove {
			w.removePartial(log, path)
		}
		return err
	}

	log.WithField("size", humanize.Bytes(uint64(len(data)))).Debug("wrote file")

	if w.recorder != nil {
		if rerr := w.recorder.Record(path, string(shape), data); rerr != nil {
			log.WithError(rerr).Warn("journal write failed")
		}
	}

	return nil
}

func (w *Writer) removePartial(log *logrus.Entry, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not remove partial file")
		return
	}
	metrics.ObservePartialRemoved()
	log.Debug("removed partial file")
}

// writeAll reports whether the file was created before the failure.
func writeAll(path string, data []byte) (created bool, err error) {
	f, err := openFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return false, errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return true, errors.Wrapf(err, "write %s", path)
	}
	return true, nil
}

func writeOnce(path string, data []byte) (created bool, err error) {
	err = writeFile(path, data, filePerm)
	if err == nil {
		return true, nil
	}

	// os.WriteFile reports open failures with Op "open"; anything later
	// means the file was created or truncated.
	var perr *os.PathError
	created = !(errors.As(err, &perr) && perr.Op == "open")
	return created, errors.Wrapf(err, "write %s", path)
}
