// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package server

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"gcode-corrector/pkg/cache"
	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/errors"
	"gcode-corrector/pkg/log"
)

// Response headers for a synchronous correction.
const (
	HeaderLines            = "X-Corrector-Lines"
	HeaderCorrected        = "X-Corrector-Corrected"
	HeaderExtrusionRemoved = "X-Corrector-Extrusion-Removed"
	HeaderCache            = "X-Corrector-Cache"
)

// readRequest returns the effective options and the uploaded body.
func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) (corrector.Options, []byte, error) {
	opts, err := applyOverrides(s.opts, r.URL.Query())
	if err != nil {
		return opts, nil, err
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return opts, nil, errors.ReadError("request body", err)
	}
	return opts, body, nil
}

// handleCorrect corrects the request body and returns the new G-code.
func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	opts, body, err := s.readRequest(w, r)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	key := cache.Key(opts, body)
	entry, hit, err := s.cache.Get(r.Context(), key)
	if err != nil {
		// A broken cache only costs a recomputation.
		s.log.WithError(err).Warn("cache lookup failed")
	}
	s.metrics.RecordCache(hit)

	if !hit {
		var res *corrector.Result
		res, entry, err = s.correct(r.Context(), opts, body)
		s.metrics.ObserveRun(res, err)
		if err != nil {
			writeJSONError(w, err)
			return
		}
		if err := s.cache.Set(r.Context(), key, entry); err != nil {
			s.log.WithError(err).Warn("cache store failed")
		}
	}

	h := w.Header()
	h.Set("Content-Type", "text/x-gcode; charset=utf-8")
	h.Set(HeaderLines, strconv.Itoa(entry.Stats.Lines))
	h.Set(HeaderCorrected, strconv.Itoa(entry.Stats.Corrected))
	h.Set(HeaderExtrusionRemoved, formatFloat(entry.Stats.ExtrusionRemoved))
	if hit {
		h.Set(HeaderCache, "hit")
	} else {
		h.Set(HeaderCache, "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Output)
}

func (s *Server) correct(ctx context.Context, opts corrector.Options, body []byte) (*corrector.Result, *cache.Entry, error) {
	c, err := corrector.New(opts)
	if err != nil {
		return nil, nil, err
	}
	c.SetLogger(s.log)

	lines, finalNewline := corrector.SplitLines(body)
	res, err := c.Run(ctx, lines, nil)
	if err != nil {
		return nil, nil, err
	}
	s.log.WithFields(log.Fields{
		"lines":     res.Stats.Lines,
		"corrected": res.Stats.Corrected,
	}).Info("request corrected")
	return res, &cache.Entry{
		Output:  corrector.JoinLines(res.Lines, finalNewline),
		Stats:   res.Stats,
		Skipped: res.Stats.SkippedByName(),
	}, nil
}
