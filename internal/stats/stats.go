// Package stats tracks per-owner daily send counters, keyed by owner,
// channel and ISO calendar date. Counters are held in memory and flushed
// to bbolt periodically and on shutdown.
package stats

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/nimeshka/leadline/internal/models"
)

var bucketSendStats = []byte("send_stats")

const dayFormat = "2006-01-02"

// Recorder is the storage boundary for daily send accounting. The
// increment is atomic here so callers never read-modify-write shared
// counter state themselves.
type Recorder struct {
	db            *bolt.DB
	logger        *slog.Logger
	flushInterval time.Duration

	mu       sync.Mutex
	counters map[string]int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRecorder opens the stats database and starts background persistence.
func NewRecorder(path string, flushInterval time.Duration, logger *slog.Logger) (*Recorder, error) {
	if flushInterval == 0 {
		flushInterval = 10 * time.Second
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSendStats)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats bucket: %w", err)
	}

	r := &Recorder{
		db:            db,
		logger:        logger.With("component", "stats"),
		flushInterval: flushInterval,
		counters:      make(map[string]int),
		stopCh:        make(chan struct{}),
	}

	if err := r.loadCounters(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}

	r.wg.Add(1)
	go r.persistLoop()

	return r, nil
}

// RecordSend counts one successful send for the owner on the given day.
func (r *Recorder) RecordSend(ownerID string, ch models.Channel, day time.Time) {
	key := counterKey(ownerID, ch, day)

	r.mu.Lock()
	r.counters[key]++
	r.mu.Unlock()
}

// Count returns the recorded sends for the owner, channel and day.
func (r *Recorder) Count(ownerID string, ch models.Channel, day time.Time) int {
	key := counterKey(ownerID, ch, day)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[key]
}

// Stop flushes counters and closes the database.
func (r *Recorder) Stop() error {
	close(r.stopCh)
	r.wg.Wait()

	if err := r.flush(); err != nil {
		r.db.Close()
		return err
	}
	return r.db.Close()
}

func counterKey(ownerID string, ch models.Channel, day time.Time) string {
	return ownerID + "/" + string(ch) + "/" + day.Format(dayFormat)
}

func (r *Recorder) persistLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if err := r.flush(); err != nil {
				r.logger.Error("failed to flush send counters", "error", err)
			}
		}
	}
}

func (r *Recorder) flush() error {
	r.mu.Lock()
	snapshot := make(map[string]int, len(r.counters))
	for k, v := range r.counters {
		snapshot[k] = v
	}
	r.mu.Unlock()

	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSendStats)
		for k, v := range snapshot {
			if err := b.Put([]byte(k), []byte(strconv.Itoa(v))); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Recorder) loadCounters() error {
	return r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSendStats)
		return b.ForEach(func(k, v []byte) error {
			n, err := strconv.Atoi(string(v))
			if err != nil {
				return nil // skip corrupt entries
			}
			r.counters[string(k)] = n
			return nil
		})
	})
}
