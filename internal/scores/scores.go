// internal/scores/scores.go
//
// Per-player score records on a local BadgerDB key/value store.
//
// Each player (account ID or anonymous cookie ID) owns one flat record:
//
//	{"highscore": 700, "wins": 3, "tries": 5, "autosave": true}
//
// stored as JSON text under "score:<owner>".
//
// Persistence is best effort:
//   - With autosave on (the default) every win/loss is written immediately.
//   - With autosave off, events only update the in-memory record; Save
//     writes it explicitly.
//   - Write failures are logged and never interrupt play.

package scores

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Record is the persisted score state for one player.
type Record struct {
	Highscore int  `json:"highscore"` // best single-round points
	Wins      int  `json:"wins"`
	Tries     int  `json:"tries"` // finished rounds, won or lost
	Autosave  bool `json:"autosave"`
}

// Config selects where records live.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM, for tests and throwaway servers.
	InMemory bool
}

// Tracker caches records in memory and mirrors them to BadgerDB.
// Safe for concurrent use.
type Tracker struct {
	db    *badger.DB
	mu    sync.Mutex
	cache map[string]*Record
}

// badgerLogger routes BadgerDB's internal logging through zerolog.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(f string, a ...interface{})   { b.l.Error().Msgf(f, a...) }
func (b badgerLogger) Warningf(f string, a ...interface{}) { b.l.Warn().Msgf(f, a...) }
func (b badgerLogger) Infof(f string, a ...interface{})    { b.l.Debug().Msgf(f, a...) }
func (b badgerLogger) Debugf(f string, a ...interface{})   { b.l.Trace().Msgf(f, a...) }

// Open opens (or creates) the score database.
func Open(cfg Config) (*Tracker, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("scores: path is required for persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{l: log.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open score database: %w", err)
	}
	return &Tracker{db: db, cache: make(map[string]*Record)}, nil
}

// Close releases the database.
func (t *Tracker) Close() error { return t.db.Close() }

func key(owner string) []byte { return []byte("score:" + owner) }

// load returns the cached record, reading it from disk on first use.
// Callers hold t.mu.
func (t *Tracker) load(owner string) *Record {
	if r, ok := t.cache[owner]; ok {
		return r
	}
	r := &Record{Autosave: true}
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(owner))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, r)
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		log.Warn().Err(err).Str("owner", owner).Msg("load score record")
		r = &Record{Autosave: true}
	}
	t.cache[owner] = r
	return r
}

// persist writes r for owner. Callers hold t.mu.
func (t *Tracker) persist(owner string, r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(owner), data)
	})
}

// autosave writes r if the player has autosave on; failures are only logged.
func (t *Tracker) autosave(owner string, r *Record) {
	if !r.Autosave {
		return
	}
	if err := t.persist(owner, r); err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("autosave score record")
	}
}

// Get returns a copy of owner's record.
func (t *Tracker) Get(owner string) Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.load(owner)
}

// RecordWin counts a won round worth points.
func (t *Tracker) RecordWin(owner string, points int) Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.load(owner)
	r.Wins++
	r.Tries++
	if points > r.Highscore {
		r.Highscore = points
	}
	t.autosave(owner, r)
	return *r
}

// RecordLoss counts an exhausted round.
func (t *Tracker) RecordLoss(owner string) Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.load(owner)
	r.Tries++
	t.autosave(owner, r)
	return *r
}

// SetAutosave toggles autosave. The flag itself is always persisted, and
// turning autosave on also flushes any unsaved progress.
func (t *Tracker) SetAutosave(owner string, on bool) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.load(owner)
	r.Autosave = on
	return *r, t.persist(owner, r)
}

// Save writes owner's current record regardless of autosave.
func (t *Tracker) Save(owner string) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.load(owner)
	return *r, t.persist(owner, r)
}

// Stored reads owner's record straight from disk, bypassing the cache.
// The bool is false if nothing has been saved yet.
func (t *Tracker) Stored(owner string) (Record, bool, error) {
	var r Record
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(owner))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &r) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

// Merge folds the record of from into into, e.g. when a guest signs up.
// Highscore takes the max; counters add up. from is deleted afterwards.
func (t *Tracker) Merge(from, into string) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if from == "" || from == into {
		return *t.load(into), nil
	}
	src := t.load(from)
	dst := t.load(into)
	dst.Wins += src.Wins
	dst.Tries += src.Tries
	dst.Highscore = max(dst.Highscore, src.Highscore)
	delete(t.cache, from)
	if err := t.persist(into, dst); err != nil {
		return *dst, err
	}
	err := t.db.Update(func(txn *badger.Txn) error { return txn.Delete(key(from)) })
	return *dst, err
}
