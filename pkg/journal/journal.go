package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

// PrefixLog is the key prefix for write entries. Keys sort by timestamp.
const PrefixLog = "log:"

var (
	ErrNotFound    = errors.New("no journal entry")
	ErrCIDMismatch = errors.New("payload does not match content id")
	ErrNotOpen     = errors.New("journal is not open")
)

// Entry is one completed whole-file write.
type Entry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"` // Nanoseconds
	Path      string `json:"path"`
	Shape     string `json:"shape"`
	Size      int    `json:"size"`
	CID       string `json:"cid"`     // base58 sha2-256 multihash of the payload
	Payload   []byte `json:"payload"` // zstd compressed
}

// Time returns the entry timestamp.
func (e Entry) Time() time.Time {
	return time.Unix(0, e.Timestamp)
}

// Content decompresses the payload and checks it against the CID.
func (e Entry) Content() ([]byte, error) {
	dec, err := getDecoder()
	if err != nil {
		return nil, err
	}
	data, err := dec.DecodeAll(e.Payload, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress entry %s", e.ID)
	}

	cid, err := contentID(data)
	if err != nil {
		return nil, err
	}
	if cid != e.CID {
		return nil, errors.Wrapf(ErrCIDMismatch, "entry %s", e.ID)
	}
	return data, nil
}

// Journal appends write entries to Pebble.
type Journal struct {
	db  *pebble.DB
	now func() time.Time

	mu   sync.Mutex
	last int64
}

// Open opens or creates a journal in dir.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create journal dir")
	}
	return open(dir, &pebble.Options{})
}

// OpenReadOnly opens an existing journal without taking write ownership.
func OpenReadOnly(dir string) (*Journal, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrap(err, "stat journal dir")
	}
	return open(dir, &pebble.Options{ReadOnly: true})
}

func open(dir string, opts *pebble.Options) (*Journal, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, "open pebble")
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close flushes and closes the underlying store.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// Record appends an entry for a completed write of data to path.
func (j *Journal) Record(path, shape string, data []byte) error {
	if j == nil || j.db == nil {
		return ErrNotOpen
	}

	cid, err := contentID(data)
	if err != nil {
		return err
	}

	enc, err := getEncoder()
	if err != nil {
		return err
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: j.nextTimestamp(),
		Path:      path,
		Shape:     shape,
		Size:      len(data),
		CID:       cid,
		Payload:   enc.EncodeAll(data, nil),
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal journal entry")
	}

	key := []byte(fmt.Sprintf("%s%020d:%s", PrefixLog, entry.Timestamp, entry.ID))
	if err := j.db.Set(key, payload, pebble.Sync); err != nil {
		return errors.Wrap(err, "write journal entry")
	}

	return nil
}

// Entries returns entries in write order. A non-empty path keeps only
// entries for that path.
func (j *Journal) Entries(path string) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrNotOpen
	}

	iter, err := newPrefixIter(j.db, PrefixLog)
	if err != nil {
		return nil, errors.Wrap(err, "open iterator")
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, errors.Wrapf(err, "decode entry %s", iter.Key())
		}
		if path != "" && e.Path != path {
			continue
		}
		entries = append(entries, e)
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Latest returns the most recent entry for path.
func (j *Journal) Latest(path string) (Entry, error) {
	entries, err := j.Entries(path)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, errors.Wrapf(ErrNotFound, "path %s", path)
	}
	return entries[len(entries)-1], nil
}

// nextTimestamp keeps keys strictly increasing even when the clock does not move.
func (j *Journal) nextTimestamp() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	ts := j.now().UnixNano()
	if ts <= j.last {
		ts = j.last + 1
	}
	j.last = ts
	return ts
}

func contentID(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", errors.Wrap(err, "compute multihash")
	}
	return mh.B58String(), nil
}

func newPrefixIter(db *pebble.DB, prefix string) (*pebble.Iterator, error) {
	upper := append([]byte(prefix), 0xff)
	return db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upper,
	})
}

var (
	encoderOnce sync.Once
	decoderOnce sync.Once
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	encoderErr  error
	decoderErr  error
)

func getEncoder() (*zstd.Encoder, error) {
	encoderOnce.Do(func() {
		encoder, encoderErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	})
	return encoder, encoderErr
}

func getDecoder() (*zstd.Decoder, error) {
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil)
	})
	return decoder, decoderErr
}
