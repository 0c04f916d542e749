// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package ssd wires the timing core's pieces — geometry (params), the NAND
// channel/LUN hierarchy and its command timer (nand), the PCIe/write-buffer
// bandwidth models (timing), and the host write buffer (wbuffer) — into one
// handle mirroring the original ssd_init/ssd_advance_* entry points.
package ssd

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/dswarbrick/ssdsim/config"
	"github.com/dswarbrick/ssdsim/nand"
	"github.com/dswarbrick/ssdsim/params"
	"github.com/dswarbrick/ssdsim/timing"
	"github.com/dswarbrick/ssdsim/wbuffer"
)

// NewParams derives a Params geometry from a loaded config profile. It is a
// thin re-export of params.Derive so callers only need to import this
// package for the common path.
func NewParams(cfg config.Profile) (*params.Params, error) {
	return params.Derive(cfg)
}

// Option configures an SSD at construction time.
type Option func(*options)

type options struct {
	logger       logr.Logger
	clock        func() uint64
	channelModel func() timing.Channel
	lockedPCIe   bool
}

// WithLogger attaches a structured logger; all components log through it.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock overrides the "now" source used when a Command's SubmitTime is
// 0, and that NextIdleTime floors its result at. Defaults to a wall-clock
// nanosecond counter; trace-driven replay, where every command already
// carries an explicit submit time, typically overrides this with its own
// simulated clock.
func WithClock(clock func() uint64) Option {
	return func(o *options) { o.clock = clock }
}

// WithChannelModel overrides the per-channel bandwidth model constructor,
// e.g. to install timing.NewLockedChannelModel for a multi-dispatcher
// topology (SPEC_FULL §5).
func WithChannelModel(ctor func() timing.Channel) Option {
	return func(o *options) { o.channelModel = ctor }
}

// SSD is the assembled timing core for one emulated device.
type SSD struct {
	Params    *params.Params
	Hierarchy *nand.Hierarchy
	Timer     *nand.Timer
	PCIe      *timing.PCIeModel
	Buf       *wbuffer.Buffer

	clock  func() uint64
	logger logr.Logger
	closed bool
}

// defaultClock wraps the wall clock as a Unix-nanosecond counter (it follows
// wall-clock adjustments, so it is not strictly monotonic), mirroring the role __get_ioclock(ssd) plays in the
// original core: a "now" a freshly constructed SSD can report before any
// command has been dispatched.
func defaultClock() uint64 { return uint64(time.Now().UnixNano()) }

// New assembles an SSD from a derived Params. The PCIe model gets its own
// unlocked channel (a host link has exactly one submitter, the DMA engine),
// independent of the NAND channel models inside Hierarchy.
func New(p *params.Params, opts ...Option) (*SSD, error) {
	o := options{clock: defaultClock}
	for _, apply := range opts {
		apply(&o)
	}

	h := nand.NewHierarchy(p, o.channelModel)

	pcieChannel := timing.NewChannelModel(p.PCIeXferUnit, p.PCIeXferLatencyPerUnit)
	pcie := timing.NewPCIeModel(pcieChannel, p.FWWriteBufferLatency0, p.FWWriteBufferLatency1)

	timer := nand.NewTimer(p, h, pcie, o.clock, o.logger)

	buf := wbuffer.New(p.WriteBufferSize, p, o.logger)

	s := &SSD{
		Params:    p,
		Hierarchy: h,
		Timer:     timer,
		PCIe:      pcie,
		Buf:       buf,
		clock:     o.clock,
		logger:    o.logger,
	}
	return s, nil
}

// Close tears down the SSD. It is idempotent; the current core holds no
// external resources, so this only records that the SSD was closed. The
// other methods do not check that flag and keep working after Close.
func (s *SSD) Close() error {
	s.closed = true
	return nil
}

// AdvanceNAND dispatches cmd against the NAND hierarchy and returns the
// simulated completion timestamp.
func (s *SSD) AdvanceNAND(cmd nand.Command) (uint64, error) {
	return s.Timer.AdvanceNAND(cmd)
}

// AdvancePCIe simulates a bare host-DMA transfer of length bytes starting no
// earlier than startTime.
func (s *SSD) AdvancePCIe(startTime, length uint64) uint64 {
	return s.PCIe.AdvancePCIe(startTime, length)
}

// AdvanceWriteBuffer simulates a host write landing in firmware's write
// buffer before its host-DMA transfer, per the linear Y = A + B*X model.
func (s *SSD) AdvanceWriteBuffer(startTime, length uint64) uint64 {
	return s.PCIe.AdvanceWriteBuffer(startTime, length)
}

// NextIdleTime returns the maximum of the current clock and the latest
// NextAvail across every LUN in the hierarchy (SPEC_FULL §4.6): the
// earliest time at which every LUN is simultaneously idle, never reported
// as being in the past.
func (s *SSD) NextIdleTime() uint64 {
	now := s.clock()
	if latest := s.Hierarchy.NextIdleTime(); latest > now {
		return latest
	}
	return now
}

// Buffer exposes the write buffer. Callers are expected to only use its
// exported Admit/AdmitCheck/MarkForFlush/Release/Refill/Search methods; the
// buffer enforces its own invariants internally via its mutex.
func (s *SSD) Buffer() *wbuffer.Buffer {
	return s.Buf
}
