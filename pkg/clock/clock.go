// Package clock drives simulation time, measured in days since the first
// day of the statistics.
package clock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ChicagoDave/casemap/pkg/bus"
)

// Day is the wall-clock length of one simulation time unit.
const Day = 24 * time.Hour

// DefaultDaysPerSecond is the playback speed.
const DefaultDaysPerSecond = 4

// ErrNoStartDate is returned by date operations before SetStart.
var ErrNoStartDate = errors.New("clock has no start date")

// TimeChanged is published whenever the simulation time changes.
type TimeChanged struct {
	Time float64   `json:"time"`
	Date time.Time `json:"date,omitempty"`
}

// PauseChanged is published whenever playback is paused or resumed.
type PauseChanged struct {
	Paused bool `json:"paused"`
}

var (
	TopicTimeChanged  = bus.NewTopic[TimeChanged]("time_changed")
	TopicPauseChanged = bus.NewTopic[PauseChanged]("pause_changed")
)

// State is a snapshot of the clock.
type State struct {
	Time          float64   `json:"time"`
	Date          time.Time `json:"date,omitempty"`
	Paused        bool      `json:"paused"`
	DaysPerSecond float64   `json:"days_per_second"`
}

// Clock holds the simulation time and playback state. A new clock starts
// paused at time 0.
type Clock struct {
	mu            sync.Mutex
	bus           *bus.Bus
	time          float64
	paused        bool
	start         time.Time
	daysPerSecond float64

	// Now is the wall clock used by Run.
	Now func() time.Time
}

// New creates a paused clock publishing on b.
func New(b *bus.Bus, daysPerSecond float64) *Clock {
	if daysPerSecond <= 0 {
		daysPerSecond = DefaultDaysPerSecond
	}
	return &Clock{
		bus:           b,
		paused:        true,
		daysPerSecond: daysPerSecond,
		Now:           time.Now,
	}
}

// SetStart sets the calendar date of time 0.
func (c *Clock) SetStart(start time.Time) {
	c.mu.Lock()
	c.start = start
	c.mu.Unlock()
}

// Time returns the simulation time in days.
func (c *Clock) Time() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

// Paused reports whether playback is paused.
func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// State returns a snapshot of the clock.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Time:          c.time,
		Date:          c.dateLocked(),
		Paused:        c.paused,
		DaysPerSecond: c.daysPerSecond,
	}
}

// Date returns the calendar date of the current time.
func (c *Clock) Date() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.start.IsZero() {
		return time.Time{}, ErrNoStartDate
	}
	return c.dateLocked(), nil
}

func (c *Clock) dateLocked() time.Time {
	if c.start.IsZero() {
		return time.Time{}
	}
	return c.start.Add(time.Duration(c.time * float64(Day)))
}

// Seek moves to t days. Subscribers are notified only if the time changed.
func (c *Clock) Seek(t float64) {
	c.mu.Lock()
	if c.time == t {
		c.mu.Unlock()
		return
	}
	c.time = t
	ev := TimeChanged{Time: t, Date: c.dateLocked()}
	c.mu.Unlock()

	if c.bus != nil {
		bus.Publish(c.bus, TopicTimeChanged, ev)
	}
}

// SetDate moves to the given calendar date.
func (c *Clock) SetDate(d time.Time) error {
	c.mu.Lock()
	start := c.start
	c.mu.Unlock()
	if start.IsZero() {
		return ErrNoStartDate
	}
	c.Seek(float64(d.Sub(start)) / float64(Day))
	return nil
}

// Advance moves time forward by the playback speed times the elapsed wall
// seconds. It does nothing while paused.
func (c *Clock) Advance(seconds float64) {
	c.mu.Lock()
	if c.paused {
		c.mu.Unlock()
		return
	}
	t := c.time + seconds*c.daysPerSecond
	c.mu.Unlock()
	c.Seek(t)
}

// SetPaused pauses or resumes playback.
func (c *Clock) SetPaused(paused bool) {
	c.mu.Lock()
	if c.paused == paused {
		c.mu.Unlock()
		return
	}
	c.paused = paused
	c.mu.Unlock()

	if c.bus != nil {
		bus.Publish(c.bus, TopicPauseChanged, PauseChanged{Paused: paused})
	}
}

// Run advances the clock hz times per second by the wall time elapsed
// since the previous tick, until ctx is done. Time spent paused is not
// counted.
func (c *Clock) Run(ctx context.Context, hz float64) error {
	if hz <= 0 {
		return errors.New("clock: tick rate must be positive")
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / hz))
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			last = c.tick(last)
		}
	}
}

// tick performs one Run step and returns the new reference time.
func (c *Clock) tick(last time.Time) time.Time {
	if c.Paused() {
		return time.Time{}
	}
	now := c.Now()
	if !last.IsZero() {
		c.Advance(now.Sub(last).Seconds())
	}
	return now
}
