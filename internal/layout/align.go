package layout

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int64) int64 {
	return (n + AlignmentMask) & ^int64(AlignmentMask)
}

// AlignUp returns n rounded up to a multiple of unit. unit must be a power of two.
//
// Example:
//
//	AlignUp(1, 4096)    = 4096
//	AlignUp(4096, 4096) = 4096
//	AlignUp(4097, 4096) = 8192
func AlignUp(n, unit int64) int64 {
	mask := unit - 1
	return (n + mask) & ^mask
}

// IsAligned reports whether n is a multiple of Alignment.
func IsAligned(n int64) bool {
	return n&AlignmentMask == 0
}
