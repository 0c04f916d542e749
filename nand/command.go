// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package nand

import (
	"errors"

	"github.com/dswarbrick/ssdsim/params"
)

// CommandKind enumerates the NAND command shapes the timer understands.
type CommandKind int

const (
	Read CommandKind = iota
	Write
	Erase
	Nop
)

func (k CommandKind) String() string {
	switch k {
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case Erase:
		return "ERASE"
	case Nop:
		return "NOP"
	default:
		return "UNKNOWN"
	}
}

// ErrUnsupportedCommand is returned by AdvanceNAND for any CommandKind other
// than Read, Write, Erase or Nop (SPEC_FULL §7).
var ErrUnsupportedCommand = errors.New("nand: unsupported command kind")

// UnmappedPPA is the sentinel physical page address meaning "no mapping".
// Re-exported from params so callers building a Command need not import
// both packages.
const UnmappedPPA = params.UnmappedPPA

// Command is one (kind, physical address, transfer size, submit time) tuple
// dispatched to Timer.AdvanceNAND.
type Command struct {
	Kind CommandKind
	PPA  uint64

	// XferSize is the transfer size in bytes.
	XferSize uint64

	// SubmitTime is the command's submission timestamp in nanoseconds; 0
	// means "use the current dispatcher clock".
	SubmitTime uint64

	// InterleaveDMA overlaps a READ's host-DMA transfer with the NAND
	// channel transfer of subsequent chunks (SPEC_FULL §4.3).
	InterleaveDMA bool
}
