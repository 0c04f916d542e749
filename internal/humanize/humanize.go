// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package humanize formats byte quantities and computes bit widths for
// ssdsimctl/ssdsimbench's human-readable output. It consolidates what the
// original tree kept as two near-identical copies (top-level formatBytes and
// utils.FormatBytes) into one.
package humanize

import (
	"fmt"
	"math/bits"
)

var suffixes = [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// Bytes formats a uint64 byte quantity using human-readable decimal units,
// e.g. kilobyte, megabyte.
func Bytes(v uint64) string {
	var i int
	d := uint64(1)

	for i = 0; i < len(suffixes)-1; i++ {
		if v >= d*1000 {
			d *= 1000
		} else {
			break
		}
	}

	if i == 0 {
		return fmt.Sprintf("%d %s", v, suffixes[i])
	}
	return fmt.Sprintf("%.3g %s", float64(v)/float64(d), suffixes[i])
}

// Log2b finds the most significant bit set in x.
func Log2b(x uint) int {
	if x == 0 {
		return 0
	}
	return bits.Len(x) - 1
}

// Duration formats a nanosecond count as a human-readable duration string
// with three significant digits, matching the log-friendly terseness the
// original tree used for byte quantities.
func Duration(ns uint64) string {
	switch {
	case ns < 1000:
		return fmt.Sprintf("%dns", ns)
	case ns < 1_000_000:
		return fmt.Sprintf("%.3gus", float64(ns)/1000)
	case ns < 1_000_000_000:
		return fmt.Sprintf("%.3gms", float64(ns)/1_000_000)
	default:
		return fmt.Sprintf("%.3gs", float64(ns)/1_000_000_000)
	}
}
