// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Change reasons used as debounce keys.
const (
	reasonPublished = "published"
	reasonEdited    = "edited"
)

// pendingChange tracks one debounced content-change notification.
type pendingChange struct {
	entityID int64
	reason   string
	fields   map[string]string
	timer    *time.Timer
}

// Debouncer coalesces rapid-fire content-change notifications into a
// single pipeline trigger per (entity, reason) key. The timer fires
// exactly once per key: notifications arriving inside the window merge
// their field values into the pending change without rearming it.
type Debouncer struct {
	pipeline *Pipeline
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingChange
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDebouncer creates a Debouncer with the given coalescing window.
func NewDebouncer(p *Pipeline, interval time.Duration, logger *slog.Logger) *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		pipeline: p,
		interval: interval,
		logger:   logger,
		pending:  make(map[string]*pendingChange),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// NotifyPublished queues a NEW-job trigger for an entity just published.
func (d *Debouncer) NotifyPublished(entityID int64) {
	d.notify(entityID, reasonPublished, nil)
}

// NotifyEdited queues an edit observation for an entity whose watched
// fields may have drifted.
func (d *Debouncer) NotifyEdited(entityID int64, fields map[string]string) {
	d.notify(entityID, reasonEdited, fields)
}

func (d *Debouncer) notify(entityID int64, reason string, fields map[string]string) {
	key := fmt.Sprintf("%d:%s", entityID, reason)

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.pending[key]; ok {
		// Absorb into the pending change; the timer keeps its
		// original deadline.
		for field, value := range fields {
			existing.fields[field] = value
		}
		d.logger.Debug("change absorbed by pending trigger", "key", key)
		return
	}

	pc := &pendingChange{
		entityID: entityID,
		reason:   reason,
		fields:   make(map[string]string, len(fields)),
	}
	for field, value := range fields {
		pc.fields[field] = value
	}
	pc.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		d.fireLocked(key)
		d.mu.Unlock()
	})
	d.pending[key] = pc
}

// fireLocked dispatches a pending change. Must be called with lock held.
func (d *Debouncer) fireLocked(key string) {
	pc, ok := d.pending[key]
	if !ok {
		return
	}
	pc.timer.Stop()
	delete(d.pending, key)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		var err error
		switch pc.reason {
		case reasonPublished:
			_, err = d.pipeline.EnqueueNew(d.ctx, pc.entityID)
		case reasonEdited:
			_, err = d.pipeline.ObserveFields(d.ctx, pc.entityID, pc.fields)
		}
		if err != nil {
			d.logger.Error("failed to process debounced change",
				"entity_id", pc.entityID, "reason", pc.reason, "error", err)
		}
	}()
}

// Flush immediately dispatches all pending changes.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.pending {
		d.fireLocked(key)
	}
}

// Stop flushes pending changes and waits for their dispatch to finish.
func (d *Debouncer) Stop() {
	d.Flush()
	d.wg.Wait()
	d.cancel()
}

// PendingCount returns the number of pending changes.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
