// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package feedback persists per-pattern confirmation outcomes across
// scans so long-run precision estimates can inform pattern tuning.
package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrUnknownPattern is returned by Precision for a pattern with no
// recorded outcomes.
var ErrUnknownPattern = errors.New("no outcomes recorded for pattern")

const patternKeyPrefix = "pattern/"

// Outcome values accepted by Record, mirroring the sandbox statuses
// that say something about a pattern.
const (
	OutcomeConfirmed   = "confirmed"
	OutcomeUnconfirmed = "unconfirmed"
	OutcomeError       = "error"
)

// record is the stored per-pattern tally.
type record struct {
	Confirmed   int       `json:"confirmed"`
	Unconfirmed int       `json:"unconfirmed"`
	Errors      int       `json:"errors"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// attempts counts decisive runs. Errors are infrastructure noise and
// never dilute the precision estimate.
func (r record) attempts() int {
	return r.Confirmed + r.Unconfirmed
}

// Store is a badger-backed precision tracker.
//
// Thread Safety: safe for concurrent use; badger transactions provide
// isolation and Record retries on conflict.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the store at dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open feedback store %s: %w", dir, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record adds one confirmation outcome for a pattern. Conflicting
// concurrent updates are retried. Unknown outcome values are rejected.
func (s *Store) Record(patternID string, outcome string) error {
	switch outcome {
	case OutcomeConfirmed, OutcomeUnconfirmed, OutcomeError:
	default:
		return fmt.Errorf("unknown outcome %q for %s", outcome, patternID)
	}
	key := []byte(patternKeyPrefix + patternID)
	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			var rec record
			item, err := txn.Get(key)
			switch {
			case err == nil:
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				}); err != nil {
					return fmt.Errorf("decode record for %s: %w", patternID, err)
				}
			case errors.Is(err, badger.ErrKeyNotFound):
				// First outcome for this pattern.
			default:
				return err
			}

			switch outcome {
			case OutcomeConfirmed:
				rec.Confirmed++
			case OutcomeUnconfirmed:
				rec.Unconfirmed++
			case OutcomeError:
				rec.Errors++
			}
			rec.UpdatedAt = time.Now().UTC()

			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			return txn.Set(key, data)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("record outcome for %s: %w", patternID, err)
		}
		return nil
	}
}

// Precision returns the confirmed ratio and decisive sample size for a
// pattern. Error outcomes are tallied but excluded from the ratio; a
// pattern with only error outcomes has no precision yet.
func (s *Store) Precision(patternID string) (float64, int, error) {
	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(patternKeyPrefix + patternID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownPattern, patternID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return 0, 0, err
	}
	if rec.attempts() == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownPattern, patternID)
	}
	return float64(rec.Confirmed) / float64(rec.attempts()), rec.attempts(), nil
}

// Precisions returns every pattern's (precision, samples) pair, for
// reporting.
func (s *Store) Precisions() (map[string]float64, error) {
	out := make(map[string]float64)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(patternKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			if err := item.Value(func(val []byte) error {
				var rec record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				if rec.attempts() > 0 {
					out[id] = float64(rec.Confirmed) / float64(rec.attempts())
				}
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
