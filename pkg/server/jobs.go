// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/log"
	"gcode-corrector/pkg/metrics"
)

// handleJobCreate starts a background correction and returns its id.
func (s *Server) handleJobCreate(w http.ResponseWriter, r *http.Request) {
	opts, body, err := s.readRequest(w, r)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	c, err := corrector.New(opts)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	c.SetLogger(s.log)

	rec := s.history.Add(r.URL.Query().Get("filename"))
	lines, finalNewline := corrector.SplitLines(body)

	rec.mu.Lock()
	rec.job = c.Start(s.jobs, lines)
	job := rec.job
	rec.mu.Unlock()

	s.metrics.JobStarted()
	s.wg.Add(1)
	go s.watch(rec, job, finalNewline)

	s.log.WithFields(log.Fields{"job": rec.id, "lines": len(lines)}).Info("job started")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": rec.id,
		"status": StatusQueued,
	})
}

// watch forwards job progress to the record until the run ends.
func (s *Server) watch(rec *JobRecord, job *corrector.Job, finalNewline bool) {
	defer s.wg.Done()
	for pct := range job.Progress() {
		rec.setProgress(pct)
	}

	res, err := job.Wait()
	var output []byte
	if err == nil {
		output = corrector.JoinLines(res.Lines, finalNewline)
	}
	status := rec.finish(res, output, err)
	s.metrics.ObserveRun(res, err)
	s.metrics.JobFinished(metrics.StatusOf(err))

	entry := s.log.WithFields(log.Fields{"job": rec.id, "status": status})
	if err != nil {
		entry.WithError(err).Warn("job ended")
		return
	}
	entry.Info("job ended")
}

func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"message": "limit must be a non-negative integer"},
			})
			return
		}
		limit = n
	}
	jobs := s.history.List(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) (*JobRecord, bool) {
	rec, err := s.history.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec.View())
}

// handleJobResult returns the corrected G-code of a completed job.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	output, status, err := rec.Output()
	switch status {
	case StatusCompleted:
		w.Header().Set("Content-Type", "text/x-gcode; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(output)
	case StatusError, StatusCanceled:
		writeJSON(w, http.StatusConflict, map[string]any{
			"status": status,
			"error":  map[string]any{"message": err.Error()},
		})
	default:
		writeJSON(w, http.StatusConflict, rec.View())
	}
}

// handleJobDelete cancels a running job, or forgets a finished one.
func (s *Server) handleJobDelete(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}

	rec.mu.Lock()
	done := rec.terminal()
	job := rec.job
	rec.mu.Unlock()

	if !done {
		if job != nil {
			job.Cancel()
		}
		writeJSON(w, http.StatusAccepted, rec.View())
		return
	}
	if err := s.history.Delete(rec.id); err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": rec.id})
}
