// Package progress reports cosmetic, fixed-step progress while a job runs.
//
// The percentages are not derived from the job itself. They advance on a timer
// and stop at a ceiling below 100 until the job returns, so 100 is only ever
// reported after the work actually finished.
package progress

import (
	"context"
	"fmt"
	"time"
)

// Update is one progress report.
type Update struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
	Done    bool   `json:"done"`
}

// Ticker advances Step percent every Interval, never passing Ceiling while the
// job is still running.
type Ticker struct {
	Step     int
	Interval time.Duration
	Ceiling  int
}

// Default is ten steps of 10 %, 50 ms apart.
func Default() Ticker {
	return Ticker{Step: 10, Interval: 50 * time.Millisecond, Ceiling: 90}
}

// Track runs work and calls report with progress updates until it returns.
// A report error stops reporting but Track still waits for work.
func (t Ticker) Track(ctx context.Context, work func(context.Context) error, report func(Update) error) error {
	t = t.normalize()

	done := make(chan error, 1)
	go func() {
		done <- work(ctx)
	}()

	reporting := true
	emit := func(u Update) {
		if !reporting {
			return
		}
		if err := report(u); err != nil {
			reporting = false
		}
	}

	percent := 0
	emit(Update{Percent: percent, Message: message(percent)})

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil {
				return err
			}
			emit(Update{Percent: 100, Message: "Conversion complete", Done: true})
			return nil
		case <-ticker.C:
			if percent+t.Step > t.Ceiling {
				continue
			}
			percent += t.Step
			emit(Update{Percent: percent, Message: message(percent)})
		}
	}
}

func (t Ticker) normalize() Ticker {
	d := Default()
	if t.Step <= 0 {
		t.Step = d.Step
	}
	if t.Interval <= 0 {
		t.Interval = d.Interval
	}
	if t.Ceiling <= 0 || t.Ceiling >= 100 {
		t.Ceiling = d.Ceiling
	}
	return t
}

func message(percent int) string {
	return fmt.Sprintf("Generating speech... %d%%", percent)
}
