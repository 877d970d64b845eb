// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink persists screening decisions. Two implementations exist: the
// shared Google Sheets worksheet the team reads, and a local SQLite ledger
// kept as the audit trail. Multi fans writes out to both.
package sink

import (
	"context"
	"errors"

	"github.com/pdiddy/grant-screener/pkg/types"
)

// Recorder is the write side of a decision store.
type Recorder interface {
	Processed(ctx context.Context) (map[string]bool, error)
	Append(ctx context.Context, d *types.Decision) error
}

// Multi records to every underlying sink. The processed set is the union, so
// a foundation counted done anywhere is not re-screened; a write goes to all
// sinks even when one of them fails.
type Multi struct {
	sinks []Recorder
}

// NewMulti combines sinks, ignoring nil entries.
func NewMulti(sinks ...Recorder) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Processed unions the processed sets of all sinks.
func (m *Multi) Processed(ctx context.Context) (map[string]bool, error) {
	union := make(map[string]bool)
	for _, s := range m.sinks {
		set, err := s.Processed(ctx)
		if err != nil {
			return nil, err
		}
		for k := range set {
			union[k] = true
		}
	}
	return union, nil
}

// Append writes the decision to every sink, joining any failures.
func (m *Multi) Append(ctx context.Context, d *types.Decision) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
