// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package window parses and applies the collection time window.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/aumtech/logbundle/pkg/defaults"
	"github.com/aumtech/logbundle/pkg/errors"
)

const (
	// DateFormat and TimeFormat describe the accepted input, as shown to users.
	DateFormat = "MM/DD/YYYY"
	TimeFormat = "HH:MM"

	// month, day, hour and minute may be given with one or two digits
	inputLayout  = "1/2/2006 15:4"
	renderLayout = "2006-01-02 15:04:05"
	stampLayout  = "010206"
)

// Window is an inclusive [Start, End] interval.
type Window struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

type options struct {
	loc    *time.Location
	strict bool
}

// Option configures Parse.
type Option func(*options)

// WithLocation sets the zone the wall-clock inputs are interpreted in.
// Default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithStrictOrder rejects a window whose start is after its end.
// Without it an inverted window is accepted and matches nothing.
func WithStrictOrder(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// New returns a window over the given instants.
func New(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// Parse builds a window from MM/DD/YYYY dates and 24-hour HH:MM times.
func Parse(startDate, startTime, endDate, endTime string, opts ...Option) (Window, error) {
	o := &options{loc: time.Local}
	for _, opt := range opts {
		opt(o)
	}

	start, err := parseInstant("start", startDate, startTime, o.loc)
	if err != nil {
		return Window{}, err
	}
	end, err := parseInstant("end", endDate, endTime, o.loc)
	if err != nil {
		return Window{}, err
	}

	w := New(start, end)
	if o.strict && w.Inverted() {
		return Window{}, errors.NewWithContext(errors.ErrCodeTimeParse, "window start is after its end",
			map[string]any{"start": w.Start.Format(renderLayout), "end": w.End.Format(renderLayout)})
	}
	return w, nil
}

func parseInstant(which, date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, errors.NewWithContext(errors.ErrCodeTimeParse,
			fmt.Sprintf("%s date and time are required (%s %s)", which, DateFormat, TimeFormat),
			map[string]any{"date": date, "time": clock})
	}

	t, err := time.ParseInLocation(inputLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, errors.WrapWithContext(errors.ErrCodeTimeParse,
			fmt.Sprintf("invalid %s date/time, expected %s %s", which, DateFormat, TimeFormat), err,
			map[string]any{"date": date, "time": clock})
	}
	return t, nil
}

// Contains reports whether t lies within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Inverted reports whether the start is after the end.
func (w Window) Inverted() bool {
	return w.Start.After(w.End)
}

// String renders the window as "<start> to <end>".
func (w Window) String() string {
	return fmt.Sprintf("%s to %s", w.Start.Format(renderLayout), w.End.Format(renderLayout))
}

// Manifest returns the text stored in the archive's date range entry.
func (w Window) Manifest() string {
	return "Files collected from " + w.String()
}

// ArchiveName returns the output file name stamped with the start date.
func (w Window) ArchiveName() string {
	return defaults.ArchivePrefix + w.Start.Format(stampLayout) + defaults.ArchiveSuffix
}
