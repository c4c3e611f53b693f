// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/errors"
)

// Job states.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
	StatusCanceled  = "canceled"
)

// Update is one message on a job's progress stream.
type Update struct {
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

// JobRecord tracks an asynchronous correction.
type JobRecord struct {
	mu sync.Mutex

	id       string
	filename string
	created  time.Time
	finished time.Time
	status   string
	progress int
	stats    *corrector.Stats
	output   []byte
	err      error

	job  *corrector.Job
	subs map[int]chan Update
	next int
}

// JobView is the JSON form of a JobRecord.
type JobView struct {
	JobID    string           `json:"job_id"`
	Filename string           `json:"filename,omitempty"`
	Status   string           `json:"status"`
	Progress int              `json:"progress"`
	Created  float64          `json:"created"`
	Finished *float64         `json:"finished,omitempty"`
	Stats    *corrector.Stats `json:"stats,omitempty"`
	Skipped  map[string]int   `json:"skipped,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// View returns a snapshot of the record.
func (r *JobRecord) View() JobView {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := JobView{
		JobID:    r.id,
		Filename: r.filename,
		Status:   r.status,
		Progress: r.progress,
		Created:  unixSeconds(r.created),
		Stats:    r.stats,
	}
	if !r.finished.IsZero() {
		f := unixSeconds(r.finished)
		v.Finished = &f
	}
	if r.stats != nil {
		v.Skipped = r.stats.SkippedByName()
	}
	if r.err != nil {
		v.Error = r.err.Error()
	}
	return v
}

// Output returns the corrected bytes with the job's status and error.
func (r *JobRecord) Output() ([]byte, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.output, r.status, r.err
}

func (r *JobRecord) terminal() bool {
	switch r.status {
	case StatusCompleted, StatusError, StatusCanceled:
		return true
	}
	return false
}

// Subscribe returns a channel of updates that starts with the current
// state. Stale updates are replaced when the reader falls behind; the
// final update is always delivered before the channel closes.
func (r *JobRecord) Subscribe() (<-chan Update, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Update, 1)
	ch <- Update{Progress: r.progress, Status: r.status}
	if r.terminal() {
		close(ch)
		return ch, func() {}
	}

	id := r.next
	r.next++
	r.subs[id] = ch
	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(ch)
		}
	}
}

// broadcast sends u to every subscriber. Caller holds r.mu.
func (r *JobRecord) broadcast(u Update) {
	for _, ch := range r.subs {
		offer(ch, u)
	}
}

func offer(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}

func (r *JobRecord) setProgress(pct int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminal() {
		return
	}
	r.status = StatusRunning
	r.progress = pct
	r.broadcast(Update{Progress: pct, Status: r.status})
}

func (r *JobRecord) finish(res *corrector.Result, output []byte, err error) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = time.Now()
	switch {
	case err == nil:
		r.status = StatusCompleted
		r.progress = 100
		r.stats = &res.Stats
		r.output = output
	case errors.Is(err, errors.ErrRunCanceled):
		r.status = StatusCanceled
		r.err = err
	default:
		r.status = StatusError
		r.err = err
	}

	r.broadcast(Update{Progress: r.progress, Status: r.status})
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
	return r.status
}

// History keeps job records, newest first, and forgets the oldest
// finished ones beyond its limit.
type History struct {
	mu    sync.RWMutex
	limit int
	jobs  map[string]*JobRecord
	order []string
}

// NewHistory returns a history that keeps up to limit records.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 100
	}
	return &History{
		limit: limit,
		jobs:  make(map[string]*JobRecord),
	}
}

func generateJobID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Add creates a queued record.
func (h *History) Add(filename string) *JobRecord {
	rec := &JobRecord{
		id:       generateJobID(),
		filename: filename,
		created:  time.Now(),
		status:   StatusQueued,
		subs:     make(map[int]chan Update),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs[rec.id] = rec
	h.order = append([]string{rec.id}, h.order...)
	h.prune()
	return rec
}

// prune drops the oldest finished records over the limit. Caller holds h.mu.
func (h *History) prune() {
	for i := len(h.order) - 1; i >= 0 && len(h.order) > h.limit; i-- {
		rec := h.jobs[h.order[i]]
		rec.mu.Lock()
		done := rec.terminal()
		rec.mu.Unlock()
		if !done {
			continue
		}
		delete(h.jobs, rec.id)
		h.order = append(h.order[:i], h.order[i+1:]...)
	}
}

// Get returns the record for id.
func (h *History) Get(id string) (*JobRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.jobs[id]
	if !ok {
		return nil, errors.JobNotFoundError(id)
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (h *History) List(limit int) []JobView {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if limit <= 0 || limit > len(h.order) {
		limit = len(h.order)
	}
	out := make([]JobView, 0, limit)
	for _, id := range h.order[:limit] {
		out = append(out, h.jobs[id].View())
	}
	return out
}

// Delete removes a finished record.
func (h *History) Delete(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.jobs[id]; !ok {
		return errors.JobNotFoundError(id)
	}
	delete(h.jobs, id)
	for i, oid := range h.order {
		if oid == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return nil
}
