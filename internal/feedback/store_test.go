// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndPrecision(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Record("sql-injection/interpolated-query", OutcomeConfirmed))
	require.NoError(t, store.Record("sql-injection/interpolated-query", OutcomeConfirmed))
	require.NoError(t, store.Record("sql-injection/interpolated-query", OutcomeUnconfirmed))

	precision, samples, err := store.Precision("sql-injection/interpolated-query")
	require.NoError(t, err)
	assert.Equal(t, 3, samples)
	assert.InDelta(t, 2.0/3.0, precision, 1e-9)
}

func TestErrorOutcomesExcludedFromPrecision(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Record("flaky", OutcomeConfirmed))
	require.NoError(t, store.Record("flaky", OutcomeError))
	require.NoError(t, store.Record("flaky", OutcomeError))

	precision, samples, err := store.Precision("flaky")
	require.NoError(t, err)
	assert.Equal(t, 1, samples, "errors are not decisive samples")
	assert.InDelta(t, 1.0, precision, 1e-9)
}

func TestErrorOnlyPatternHasNoPrecision(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Record("broken-infra", OutcomeError))

	_, _, err := store.Precision("broken-infra")
	assert.ErrorIs(t, err, ErrUnknownPattern)
}

func TestRecordRejectsUnknownOutcome(t *testing.T) {
	store := openStore(t)

	assert.Error(t, store.Record("a", "skipped"))
	assert.Error(t, store.Record("a", ""))
}

func TestPrecisionUnknownPattern(t *testing.T) {
	store := openStore(t)

	_, _, err := store.Precision("never-seen")
	assert.ErrorIs(t, err, ErrUnknownPattern)
}

func TestPrecisionsListsAllPatterns(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Record("a", OutcomeConfirmed))
	require.NoError(t, store.Record("b", OutcomeUnconfirmed))

	all, err := store.Precisions()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.InDelta(t, 1.0, all["a"], 1e-9)
	assert.InDelta(t, 0.0, all["b"], 1e-9)
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, store.Record("a", OutcomeConfirmed))
	require.NoError(t, store.Close())

	reopened, err := Open(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	precision, samples, err := reopened.Precision("a")
	require.NoError(t, err)
	assert.Equal(t, 1, samples)
	assert.InDelta(t, 1.0, precision, 1e-9)
}

func TestConcurrentRecords(t *testing.T) {
	store := openStore(t)

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		outcome := OutcomeConfirmed
		if i%2 == 1 {
			outcome = OutcomeUnconfirmed
		}
		go func(outcome string) {
			done <- store.Record("hot-pattern", outcome)
		}(outcome)
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}

	_, samples, err := store.Precision("hot-pattern")
	require.NoError(t, err)
	assert.Equal(t, 20, samples)
}
