package scheduler

import (
	"fmt"
	"time"
)

// Schedule computes the next run after a given instant.
type Schedule interface {
	Next(after time.Time) time.Time
	String() string
}

// Every runs a job at a fixed interval counted from the previous tick.
// A non-positive interval means hourly.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		d = time.Hour
	}
	return interval(d)
}

// HourlyAt runs a job at the given minute of every hour.
func HourlyAt(minute int) Schedule {
	return wallClock{hour: -1, minute: clamp(minute, 59)}
}

// DailyAt runs a job once a day at hour:minute in the location of the
// time passed to Next.
func DailyAt(hour, minute int) Schedule {
	return wallClock{hour: clamp(hour, 23), minute: clamp(minute, 59)}
}

// Daily is DailyAt(0, 0).
func Daily() Schedule { return DailyAt(0, 0) }

type interval time.Duration

func (d interval) Next(after time.Time) time.Time { return after.Add(time.Duration(d)) }

func (d interval) String() string { return "every " + time.Duration(d).String() }

// wallClock fires at a fixed minute; hour < 0 means every hour.
type wallClock struct {
	hour, minute int
}

func (w wallClock) Next(after time.Time) time.Time {
	y, mo, d := after.Date()
	h := w.hour
	if w.hourly() {
		h = after.Hour()
	}

	at := time.Date(y, mo, d, h, w.minute, 0, 0, after.Location())
	if at.After(after) {
		return at
	}
	if w.hourly() {
		return at.Add(time.Hour)
	}
	return at.AddDate(0, 0, 1)
}

func (w wallClock) String() string {
	if w.hourly() {
		return fmt.Sprintf("hourly at :%02d", w.minute)
	}
	return fmt.Sprintf("daily at %02d:%02d", w.hour, w.minute)
}

func (w wallClock) hourly() bool { return w.hour < 0 }

func clamp(v, upper int) int {
	return max(0, min(v, upper))
}
