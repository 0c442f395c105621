package session

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Ticker is a running periodic task.
type Ticker interface{ Stop() }

// TickerFactory starts calling fn periodically until Stop.
type TickerFactory func(fn func()) (Ticker, error)

// GocronTicker runs fn every interval on its own scheduler. Singleton mode
// keeps a slow tick from overlapping the next one.
func GocronTicker(interval time.Duration) TickerFactory {
	return func(fn func()) (Ticker, error) {
		s := gocron.NewScheduler(time.UTC)
		s.SingletonModeAll()
		if _, err := s.Every(interval).Do(fn); err != nil {
			return nil, fmt.Errorf("schedule countdown: %w", err)
		}
		s.StartAsync()
		return s, nil
	}
}

// FormatClock renders a countdown as MM:SS; minutes are not capped at 59.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
