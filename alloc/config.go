package alloc

import (
	"io"
	"log/slog"
	"os"

	"github.com/joshuapare/heapkit/internal/layout"
)

// Runtime debug flag for allocation logging, controlled by HEAPKIT_LOG_ALLOC.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Config tunes a Heap. A nil *Config passed to New means DefaultConfig.
type Config struct {
	// ID is written into the owner field of every header this heap creates.
	ID uint16

	// Index selects the general free index.
	Index IndexKind

	// QuickSize is the payload size served by the quick list. 0 disables it.
	QuickSize int64

	// GrowUnit is the minimum number of bytes requested per growth.
	// 0 means three system pages.
	GrowUnit int64

	// GrowExact requests exactly header plus payload on growth, with no
	// rounding and no pre-split remainder.
	GrowExact bool

	// Guard enables the header magic check on Free.
	Guard bool

	// Classes buckets free blocks in FreeHistogram.
	Classes SizeClassConfig

	// Logger receives debug and warning records. nil discards them unless
	// HEAPKIT_LOG_ALLOC is set.
	Logger *slog.Logger
}

// DefaultConfig is used when New receives a nil config.
var DefaultConfig = Config{
	Index:     IndexTree,
	QuickSize: 128,
	Guard:     true,
	Classes:   ConfigBalanced,
}

func (c Config) normalize(pageSize int64) Config {
	if c.QuickSize < 0 {
		c.QuickSize = 0
	}
	c.QuickSize = layout.Align8(c.QuickSize)
	if c.GrowUnit <= 0 {
		c.GrowUnit = 3 * pageSize
	}
	c.GrowUnit = layout.Align8(c.GrowUnit)
	if c.Classes.Name == "" {
		c.Classes = ConfigBalanced
	}
	return c
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if logAlloc {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return discard
}
