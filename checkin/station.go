// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package checkin runs the registration desk scanners. Each Station shows
// the outcome of the last scan for a bounded window, then returns to ready.
package checkin

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/pilrt/models"
)

type State string

const (
	StateReady  State = "ready"
	StateResult State = "result"
)

// Outcome codes shown by a station. Failures use models.ErrorCode.
const OutcomeCheckedIn = "checked_in"

// CheckIn is the check-in path of the eligibility validator.
type CheckIn interface {
	CheckIn(ctx context.Context, code string) (models.Voter, error)
}

type Options struct {
	ResultWindow    time.Duration
	ScanLatchWindow time.Duration
	Now             func() time.Time
}

// Result is one scan outcome.
type Result struct {
	Outcome string        `json:"outcome"`
	Message string        `json:"message"`
	Voter   *models.Voter `json:"voter,omitempty"`
	At      time.Time     `json:"at"`
}

type View struct {
	StationID string  `json:"station_id"`
	State     State   `json:"state"`
	Result    *Result `json:"result,omitempty"`
	// Repeat marks a latched re-scan answered from the held result.
	Repeat bool `json:"repeat,omitempty"`
}

type Station struct {
	id        string
	validator CheckIn
	opts      Options

	mu       sync.Mutex
	result   *Result
	err      error
	scanning bool
	gen      uint64
	timer    *time.Timer

	latchCode string
	latchAt   time.Time
}

func (s *Station) now() time.Time {
	if s.opts.Now != nil {
		return s.opts.Now()
	}
	return time.Now().UTC()
}

func (s *Station) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Scan checks a voter in. A repeat of the code just scanned, within the
// latch window, returns the held outcome instead of validating again. The
// returned error is the validator outcome; the Result always describes it.
func (s *Station) Scan(ctx context.Context, code string) (View, error) {
	code = strings.TrimSpace(code)
	now := s.now()

	s.mu.Lock()
	if code != "" && code == s.latchCode && now.Sub(s.latchAt) < s.opts.ScanLatchWindow && s.result != nil {
		defer s.mu.Unlock()
		v := s.viewLocked()
		v.Repeat = true
		return v, s.err
	}
	if s.scanning {
		s.mu.Unlock()
		return View{}, models.ErrTerminalBusy
	}
	s.scanning = true
	s.latchCode, s.latchAt = code, now
	s.mu.Unlock()

	voter, err := s.validator.CheckIn(ctx, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = false

	res := &Result{At: now}
	switch {
	case err == nil:
		res.Outcome = OutcomeCheckedIn
		res.Message = "Berhasil check-in, silakan menunggu panggilan"
		res.Voter = &voter
	case models.IsValidatorError(err):
		res.Outcome = models.ErrorCode(err)
		res.Message = models.ErrorMessage(err)
		if voter.ID != "" {
			res.Voter = &voter
		}
		slog.Info("check-in rejected", "station_id", s.id, "reason", res.Outcome)
	default:
		res.Outcome = models.ErrorCode(err)
		res.Message = models.ErrorMessage(err)
		slog.Error("check-in failed", "station_id", s.id, "error", err)
	}

	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.result, s.err = res, err
	gen := s.gen
	s.timer = time.AfterFunc(s.opts.ResultWindow, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return
		}
		s.result, s.err, s.timer = nil, nil, nil
		s.latchCode = ""
	})

	return s.viewLocked(), err
}

func (s *Station) viewLocked() View {
	v := View{StationID: s.id, State: StateReady}
	if s.result != nil {
		r := *s.result
		v.State = StateResult
		v.Result = &r
	}
	return v
}

// Desk holds the stations of one polling place.
type Desk struct {
	validator CheckIn
	opts      Options

	mu       sync.Mutex
	stations map[string]*Station
}

func NewDesk(validator CheckIn, opts Options) *Desk {
	return &Desk{validator: validator, opts: opts, stations: make(map[string]*Station)}
}

func (d *Desk) Station(id string) *Station {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.stations[id]
	if !ok {
		s = &Station{id: id, validator: d.validator, opts: d.opts}
		d.stations[id] = s
	}
	return s
}

func (d *Desk) Views() []View {
	d.mu.Lock()
	stations := make([]*Station, 0, len(d.stations))
	for _, s := range d.stations {
		stations = append(stations, s)
	}
	d.mu.Unlock()

	views := make([]View, 0, len(stations))
	for _, s := range stations {
		views = append(views, s.View())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].StationID < views[j].StationID })
	return views
}
