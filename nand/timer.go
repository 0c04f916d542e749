// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package nand

import (
	"github.com/go-logr/logr"

	"github.com/dswarbrick/ssdsim/params"
	"github.com/dswarbrick/ssdsim/timing"
)

// DMA is the host-DMA model a Timer uses to overlap PCIe transfer with NAND
// channel transfer on interleaved reads. *timing.PCIeModel satisfies this.
type DMA interface {
	AdvancePCIe(startTime, length uint64) uint64
}

// Timer is the command-dispatch arithmetic engine: for a Command it
// composes NAND latency, channel transfer latency, and optional overlapped
// host-DMA transfer into a completion time, advancing the addressed LUN's
// availability (SPEC_FULL §4.3).
//
// Per SPEC_FULL §5, a Timer performs no internal locking: LUN state is only
// ever touched by the single dispatcher thread owning that LUN's partition,
// and Hierarchy's Channel.Model is expected to already be the locked variant
// if more than one thread drives a channel.
type Timer struct {
	Params    *params.Params
	Hierarchy *Hierarchy
	DMA       DMA

	// Clock supplies "now" when a Command's SubmitTime is 0, modeling the
	// dispatcher's per-CPU clock read (__get_ioclock in the original core).
	Clock func() uint64

	Logger logr.Logger
}

// NewTimer constructs a Timer. If logger is the zero value, logging calls
// are silently discarded.
func NewTimer(p *params.Params, h *Hierarchy, dma DMA, clock func() uint64, logger logr.Logger) *Timer {
	return &Timer{Params: p, Hierarchy: h, DMA: dma, Clock: clock, Logger: logger}
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// AdvanceNAND dispatches cmd against the addressed LUN and returns the
// simulated completion timestamp.
func (t *Timer) AdvanceNAND(cmd Command) (uint64, error) {
	submitTime := cmd.SubmitTime
	if submitTime == 0 {
		submitTime = t.Clock()
	}

	if cmd.PPA == UnmappedPPA {
		t.Logger.V(1).Info("advance_nand on unmapped ppa, no-op", "submit_time", submitTime)
		return submitTime, nil
	}

	ch, lunIdx, plane, block, page, _ := t.Params.UnpackPPA(cmd.PPA)
	channel := &t.Hierarchy.Channels[ch]
	lun := &channel.LUNs[lunIdx]
	cell := t.Params.CellOf(page)

	switch cmd.Kind {
	case Read:
		return t.advanceRead(channel, lun, cell, cmd, submitTime), nil

	case Write:
		chnlStart := maxU64(lun.NextAvail, submitTime)
		chnlEnd := channel.Model.Request(chnlStart, cmd.XferSize)
		nandEnd := chnlEnd + t.Params.ProgramLatencyNs
		lun.NextAvail = nandEnd

		if t.Params.WriteEarlyCompletion {
			// Acknowledge the host early while the LUN honestly stays busy
			// until the program latency elapses (SPEC_FULL §9 Open Question
			// resolution: write_early_completion).
			return chnlEnd, nil
		}
		return nandEnd, nil

	case Erase:
		nandStart := maxU64(lun.NextAvail, submitTime)
		nandEnd := nandStart + t.Params.EraseLatencyNs
		lun.NextAvail = nandEnd
		t.Hierarchy.Channels[ch].LUNs[lunIdx].Planes[plane].Blocks[block].EraseCount++
		return nandEnd, nil

	case Nop:
		nandStart := maxU64(lun.NextAvail, submitTime)
		lun.NextAvail = nandStart
		return nandStart, nil

	default:
		t.Logger.Error(ErrUnsupportedCommand, "unsupported nand command", "kind", cmd.Kind)
		return 0, ErrUnsupportedCommand
	}
}

func (t *Timer) advanceRead(channel *Channel, lun *LUN, cell params.CellType, cmd Command, submitTime uint64) uint64 {
	nandStart := maxU64(lun.NextAvail, submitTime)

	var nandEnd uint64
	if cmd.XferSize == 4096 {
		nandEnd = nandStart + t.Params.Read4KiBLatencyNs[cell]
	} else {
		nandEnd = nandStart + t.Params.ReadLatencyNs[cell]
	}

	chnlStart := nandEnd
	remaining := cmd.XferSize
	var chnlEnd, completed uint64

	for remaining > 0 {
		xferSize := remaining
		if xferSize > t.Params.MaxChannelXferSize {
			xferSize = t.Params.MaxChannelXferSize
		}

		chnlEnd = channel.Model.Request(chnlStart, xferSize)

		if cmd.InterleaveDMA && t.DMA != nil {
			completed = t.DMA.AdvancePCIe(chnlEnd, xferSize)
		} else {
			completed = chnlEnd
		}

		remaining -= xferSize
		chnlStart = chnlEnd
	}

	// The LUN's availability tracks the NAND channel, never the overlapped
	// DMA completion (SPEC_FULL §4.3).
	lun.NextAvail = chnlEnd

	return completed
}
