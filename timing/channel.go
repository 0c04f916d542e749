// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package timing implements the channel bandwidth model shared by the NAND
// channels and the host-DMA (PCIe) link: a strictly serial queue encoded by
// one monotone "last completion time" scalar (SPEC_FULL §4.2).
package timing

import "sync"

// Channel serializes (start, length) transfer requests into completion
// timestamps. Implementations are not required to be safe for concurrent
// use; see LockedChannelModel for the variant that is.
type Channel interface {
	Request(startTime, length uint64) uint64
}

// ChannelModel is the unlocked channel bandwidth model. Per SPEC_FULL §5, a
// channel driven by exactly one dispatcher thread needs no lock at all; this
// is the recommended, default topology.
type ChannelModel struct {
	// XferUnit and LatencyPerUnit parameterize the model: a request of
	// length bytes bills ceil(length/XferUnit) * LatencyPerUnit nanoseconds.
	XferUnit       uint64
	LatencyPerUnit uint64

	lastCompletion uint64
}

// NewChannelModel returns a channel model with the given per-unit transfer
// parameters and an initially idle ("completed at time 0") state.
func NewChannelModel(xferUnit, latencyPerUnit uint64) *ChannelModel {
	return &ChannelModel{XferUnit: xferUnit, LatencyPerUnit: latencyPerUnit}
}

// Request computes and records the serialized completion time of a transfer
// of length bytes submitted at startTime.
func (c *ChannelModel) Request(startTime, length uint64) uint64 {
	effStart := startTime
	if c.lastCompletion > effStart {
		effStart = c.lastCompletion
	}

	units := (length + c.XferUnit - 1) / c.XferUnit
	completion := effStart + units*c.LatencyPerUnit

	c.lastCompletion = completion
	return completion
}

// LastCompletion reports the most recent completion time this model
// returned, or 0 if it has never served a request.
func (c *ChannelModel) LastCompletion() uint64 {
	return c.lastCompletion
}

// LockedChannelModel wraps a ChannelModel behind a mutex for the topology
// where more than one dispatcher thread drives the same channel. The
// monotone last-completion update cannot tolerate concurrent reorderings
// (SPEC_FULL §5), so every Request call takes the lock for its full body.
type LockedChannelModel struct {
	mu    sync.Mutex
	model ChannelModel
}

// NewLockedChannelModel returns a mutex-guarded channel model.
func NewLockedChannelModel(xferUnit, latencyPerUnit uint64) *LockedChannelModel {
	return &LockedChannelModel{model: ChannelModel{XferUnit: xferUnit, LatencyPerUnit: latencyPerUnit}}
}

// Request is Channel.Request, serialized under the model's mutex.
func (c *LockedChannelModel) Request(startTime, length uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.Request(startTime, length)
}
