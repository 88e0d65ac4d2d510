package alloc

import "math"

// SizeClassConfig defines the buckets FreeHistogram groups free blocks into.
type SizeClassConfig struct {
	// Name for this configuration (for reports)
	Name string

	// Small sizes (linear increments)
	SmallMin       int64 // Smallest payload (typically 8)
	SmallMax       int64 // Max for linear increments (typically 256-512)
	SmallIncrement int64 // Increment for small sizes (8, 16, or 32)

	// Medium sizes (logarithmic growth); anything above lands in the last bucket
	MediumMax    int64
	GrowthFactor float64
}

// Predefined configurations.
var (
	// FineGrained: 8-256 step 8 + 256-16K log growth.
	ConfigFineGrained = SizeClassConfig{
		Name:           "FineGrained",
		SmallMin:       8,
		SmallMax:       256,
		SmallIncrement: 8,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// Balanced: 8-512 step 16 + 512-16K log growth.
	ConfigBalanced = SizeClassConfig{
		Name:           "Balanced",
		SmallMin:       8,
		SmallMax:       512,
		SmallIncrement: 16,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// Coarse: 8-512 step 32 + 512-64K doubling.
	ConfigCoarse = SizeClassConfig{
		Name:           "Coarse",
		SmallMin:       8,
		SmallMax:       512,
		SmallIncrement: 32,
		MediumMax:      65536,
		GrowthFactor:   2.0,
	}
)

// sizeClassTable holds the computed size class boundaries.
type sizeClassTable struct {
	config     SizeClassConfig
	boundaries []int64 // Inclusive upper bound for each size class
}

// newSizeClassTable computes size class boundaries from config.
func newSizeClassTable(config SizeClassConfig) *sizeClassTable {
	table := &sizeClassTable{
		config:     config,
		boundaries: make([]int64, 0, 64),
	}

	// Phase 1: small sizes (linear increments)
	if config.SmallIncrement > 0 {
		for size := config.SmallMin; size < config.SmallMax; size += config.SmallIncrement {
			table.boundaries = append(table.boundaries, size+config.SmallIncrement-1)
		}
	}

	// Phase 2: medium sizes (logarithmic growth)
	size := max(config.SmallMax, config.SmallMin)
	for size < config.MediumMax {
		next := int64(math.Ceil(float64(size) * config.GrowthFactor))
		if next <= size {
			next = size + 1
		}
		table.boundaries = append(table.boundaries, next-1)
		size = next
	}

	return table
}

// class returns the size class index for size. Sizes above every boundary
// map to numClasses(), the overflow bucket.
func (t *sizeClassTable) class(size int64) int {
	lo, hi := 0, len(t.boundaries)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if size <= t.boundaries[mid] {
			if mid == 0 || size > t.boundaries[mid-1] {
				return mid
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return len(t.boundaries)
}

// numClasses returns the number of bounded classes, excluding overflow.
func (t *sizeClassTable) numClasses() int { return len(t.boundaries) }

// upper returns the inclusive upper bound of class c, or -1 for overflow.
func (t *sizeClassTable) upper(c int) int64 {
	if c >= len(t.boundaries) {
		return -1
	}
	return t.boundaries[c]
}

func (t *sizeClassTable) String() string { return t.config.Name }
