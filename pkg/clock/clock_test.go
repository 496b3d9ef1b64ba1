package clock

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ChicagoDave/casemap/pkg/bus"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func recordTimes(b *bus.Bus) *[]TimeChanged {
	var got []TimeChanged
	bus.Subscribe(b, TopicTimeChanged, func(ev TimeChanged) { got = append(got, ev) })
	return &got
}

func TestNewClockIsPaused(t *testing.T) {
	c := New(bus.New(), 0)
	if !c.Paused() {
		t.Error("new clock should be paused")
	}
	if c.State().DaysPerSecond != DefaultDaysPerSecond {
		t.Errorf("days/sec = %v, want %v", c.State().DaysPerSecond, DefaultDaysPerSecond)
	}
	c.Advance(10)
	if c.Time() != 0 {
		t.Errorf("time = %v, want 0 while paused", c.Time())
	}
}

func TestAdvance(t *testing.T) {
	b := bus.New()
	got := recordTimes(b)
	c := New(b, 4)
	c.SetPaused(false)

	c.Advance(0.5)
	c.Advance(0.25)
	if c.Time() != 3 {
		t.Errorf("time = %v, want 3", c.Time())
	}
	if len(*got) != 2 || (*got)[1].Time != 3 {
		t.Errorf("notifications = %+v", *got)
	}
	c.Advance(0)
	if len(*got) != 2 {
		t.Errorf("unchanged time must not notify, got %d notifications", len(*got))
	}
}

func TestSetPausedNotifiesOnChange(t *testing.T) {
	b := bus.New()
	var got []PauseChanged
	bus.Subscribe(b, TopicPauseChanged, func(ev PauseChanged) { got = append(got, ev) })
	c := New(b, 4)

	c.SetPaused(true)
	c.SetPaused(false)
	c.SetPaused(false)
	c.SetPaused(true)
	if len(got) != 2 || got[0].Paused || !got[1].Paused {
		t.Errorf("pause notifications = %+v", got)
	}
}

func TestDates(t *testing.T) {
	b := bus.New()
	got := recordTimes(b)
	c := New(b, 4)

	if _, err := c.Date(); !errors.Is(err, ErrNoStartDate) {
		t.Errorf("Date() err = %v, want ErrNoStartDate", err)
	}
	if err := c.SetDate(time.Now()); !errors.Is(err, ErrNoStartDate) {
		t.Errorf("SetDate err = %v, want ErrNoStartDate", err)
	}

	start := time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC)
	c.SetStart(start)
	c.Seek(1.5)
	d, err := c.Date()
	if err != nil {
		t.Fatal(err)
	}
	if want := start.Add(36 * time.Hour); !d.Equal(want) {
		t.Errorf("date = %v, want %v", d, want)
	}
	if !(*got)[0].Date.Equal(d) {
		t.Errorf("published date = %v, want %v", (*got)[0].Date, d)
	}

	if err := c.SetDate(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if c.Time() != 39 {
		t.Errorf("time = %v, want 39", c.Time())
	}
}

func TestTickUsesWallClock(t *testing.T) {
	c := New(bus.New(), 4)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return now }

	last := c.tick(time.Time{})
	if !last.IsZero() {
		t.Error("paused tick should reset the reference time")
	}

	c.SetPaused(false)
	last = c.tick(last)
	if c.Time() != 0 {
		t.Errorf("first tick advanced time to %v", c.Time())
	}
	now = now.Add(500 * time.Millisecond)
	last = c.tick(last)
	if !approxEqual(c.Time(), 2, 1e-9) {
		t.Errorf("time = %v, want 2", c.Time())
	}

	c.SetPaused(true)
	last = c.tick(last)
	now = now.Add(time.Hour)
	c.SetPaused(false)
	last = c.tick(last)
	now = now.Add(250 * time.Millisecond)
	c.tick(last)
	if !approxEqual(c.Time(), 3, 1e-9) {
		t.Errorf("time = %v, want 3 (paused hour not counted)", c.Time())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := New(bus.New(), 4)
	c.SetPaused(false)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Run(ctx, 200)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run err = %v, want deadline exceeded", err)
	}
	if c.Time() <= 0 {
		t.Errorf("time = %v, want progress while running", c.Time())
	}
	if err := c.Run(context.Background(), 0); err == nil {
		t.Error("expected error for zero tick rate")
	}
}
