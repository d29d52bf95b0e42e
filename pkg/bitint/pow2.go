// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size lock-free
rings and FFT windows.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Round a queue capacity up so indices can be masked
	capacity := bitint.NextPowerOfTwo(100) // Returns 128
	mask := capacity - 1

	// Pick the largest FFT window that fits a recording
	size := bitint.PrevPowerOfTwo(recordedFrames)

NextPowerOfTwo subtracts one before finding the highest set bit so that
values which are already powers of two are preserved rather than doubled:

	size-1 = 7 (binary 0111), bits.Len(7) = 3, 1 << 3 = 8
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size, or 0 when size < 1.
//
//	Input  Output
//	4      4
//	5      4
//	1000   512
//	0      0
func PrevPowerOfTwo(size int) int {
	if size < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo checks if n is a power of 2. Powers of 2 have exactly one
// bit set, so n & (n-1) clears it and leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
