package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Common errors
var (
	ErrNotFound = errors.New("recording not found")
	ErrClosed   = errors.New("recorder closed")
)

const keyPrefix = "snap/"

// keyLen is len("snap/") + 26-char ULID + "/" + 4-byte tick.
const keyLen = len(keyPrefix) + ulid.EncodedSize + 1 + 4

// Config configures a Recorder.
type Config struct {
	// Dir is the Badger data directory.
	Dir string
	// GCInterval is how often value-log GC runs. Zero disables it.
	GCInterval time.Duration
	// GCThreshold is the discard ratio passed to RunValueLogGC.
	GCThreshold float64
	// SyncWrites fsyncs every append.
	SyncWrites bool
	// ReadOnly opens the store for inspection only. Append and
	// DeleteSession fail, and GC never runs.
	ReadOnly bool
}

// DefaultConfig returns a Config for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
	}
}

// Session summarizes one recording.
type Session struct {
	ID        string    `json:"id"`
	Started   time.Time `json:"started"`
	Frames    int       `json:"frames"`
	FirstTick uint32    `json:"first_tick"`
	LastTick  uint32    `json:"last_tick"`
}

// Stats contains storage statistics.
type Stats struct {
	LSMSize      uint64 `json:"lsm_size"`
	ValueLogSize uint64 `json:"value_log_size"`
	LastGCTime   int64  `json:"last_gc_time"` // Unix milliseconds
	GCRuns       uint64 `json:"gc_runs"`
}

// Recorder appends snapshots to Badger.
type Recorder struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger
	closed atomic.Bool

	lastGCTime atomic.Int64
	gcRuns     atomic.Uint64

	metricsFrames prometheus.Counter
	metricsBytes  prometheus.Counter
	metricsSize   prometheus.GaugeFunc

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens or creates the store in cfg.Dir.
func Open(cfg Config, logger *slog.Logger) (*Recorder, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("recorder: dir is required")
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "recorder")

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	opts.ReadOnly = cfg.ReadOnly
	if cfg.ReadOnly {
		cfg.GCInterval = 0
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("recorder: open db: %w", err)
	}

	r := &Recorder{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go r.gcLoop()

	logger.Info("recorder started", "dir", cfg.Dir, "gc_interval", cfg.GCInterval)
	return r, nil
}

// Key builds the storage key for one frame.
func Key(session ulid.ULID, tick uint32) []byte {
	key := make([]byte, 0, keyLen)
	key = append(key, keyPrefix...)
	key = append(key, session.String()...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint32(key, tick)
}

func parseKey(key []byte) (string, uint32, bool) {
	if len(key) != keyLen || string(key[:len(keyPrefix)]) != keyPrefix {
		return "", 0, false
	}
	id := string(key[len(keyPrefix) : len(keyPrefix)+ulid.EncodedSize])
	return id, binary.BigEndian.Uint32(key[keyLen-4:]), true
}

func sessionPrefix(id string) []byte {
	return []byte(keyPrefix + id + "/")
}

// Append stores the snapshot payload emitted at tick.
func (r *Recorder) Append(ctx context.Context, session ulid.ULID, tick uint32, payload []byte) error {
	if r.closed.Load() {
		return ErrClosed
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(Key(session, tick), payload)
	})
	if err != nil {
		return fmt.Errorf("recorder: append tick %d: %w", tick, err)
	}

	if r.metricsFrames != nil {
		r.metricsFrames.Inc()
		r.metricsBytes.Add(float64(len(payload)))
	}
	return nil
}

// Get returns the payload recorded for session at tick.
func (r *Recorder) Get(ctx context.Context, session string, tick uint32) ([]byte, error) {
	id, err := ulid.ParseStrict(session)
	if err != nil {
		return nil, fmt.Errorf("recorder: session id %q: %w", session, err)
	}

	var value []byte
	err = r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(Key(id, tick))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Sessions lists every recording in start order.
func (r *Recorder) Sessions(ctx context.Context) ([]Session, error) {
	var out []Session

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, tick, ok := parseKey(it.Item().Key())
			if !ok {
				continue
			}

			if n := len(out); n == 0 || out[n-1].ID != id {
				s := Session{ID: id, FirstTick: tick}
				if u, err := ulid.ParseStrict(id); err == nil {
					s.Started = ulid.Time(u.Time()).UTC()
				}
				out = append(out, s)
			}
			s := &out[len(out)-1]
			s.Frames++
			s.LastTick = tick
		}
		return nil
	})
	return out, err
}

// Frames calls fn for every frame of session in tick order until fn
// returns false. A session with no frames fails with ErrNotFound.
func (r *Recorder) Frames(ctx context.Context, session string, fn func(tick uint32, payload []byte) bool) error {
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = sessionPrefix(session)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			_, tick, ok := parseKey(item.Key())
			if !ok {
				continue
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			found = true
			if !fn(tick, value) {
				break
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes every frame of session and returns how many were
// deleted.
func (r *Recorder) DeleteSession(ctx context.Context, session string) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}

	prefix := sessionPrefix(session)
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNotFound
	}

	if err := r.db.DropPrefix(prefix); err != nil {
		return 0, fmt.Errorf("recorder: drop %s: %w", session, err)
	}
	r.logger.Info("recording deleted", "session", session, "frames", count)
	return count, nil
}

// GC runs value-log garbage collection until Badger reports nothing left
// to rewrite.
func (r *Recorder) GC(ctx context.Context) error {
	start := time.Now()
	runs := 0
	for ctx.Err() == nil {
		err := r.db.RunValueLogGC(r.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("recorder: gc: %w", err)
		}
		runs++
	}

	r.lastGCTime.Store(time.Now().UnixMilli())
	r.gcRuns.Add(1)
	r.logger.Debug("gc completed", "rewrites", runs, "elapsed", time.Since(start))
	return nil
}

// Stats returns storage statistics.
func (r *Recorder) Stats() Stats {
	lsm, vlog := r.db.Size()
	return Stats{
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		LastGCTime:   r.lastGCTime.Load(),
		GCRuns:       r.gcRuns.Load(),
	}
}

// RegisterMetrics registers recorder metrics. A nil registerer is ignored.
// Returns the recorder for method chaining.
func (r *Recorder) RegisterMetrics(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		return r
	}

	r.metricsFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snapmesh",
		Subsystem: "recorder",
		Name:      "frames_total",
		Help:      "Snapshots written to the recording store",
	})
	r.metricsBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snapmesh",
		Subsystem: "recorder",
		Name:      "bytes_total",
		Help:      "Snapshot payload bytes written to the recording store",
	})
	r.metricsSize = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "snapmesh",
		Subsystem: "recorder",
		Name:      "size_bytes",
		Help:      "Badger LSM plus value log size in bytes",
	}, func() float64 {
		s := r.Stats()
		return float64(s.LSMSize + s.ValueLogSize)
	})

	reg.MustRegister(r.metricsFrames, r.metricsBytes, r.metricsSize)
	return r
}

// Close stops the GC loop and closes the store. Calling Close twice is a
// no-op.
func (r *Recorder) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(r.stopCh)
	<-r.doneCh

	if err := r.db.Close(); err != nil {
		return fmt.Errorf("recorder: close db: %w", err)
	}
	r.logger.Info("recorder closed")
	return nil
}

func (r *Recorder) gcLoop() {
	defer close(r.doneCh)

	if r.cfg.GCInterval <= 0 {
		<-r.stopCh
		return
	}

	ticker := time.NewTicker(r.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err := r.GC(ctx); err != nil {
				r.logger.Error("auto gc failed", "error", err)
			}
			cancel()
		case <-r.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
