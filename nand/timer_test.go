// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package nand

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dswarbrick/ssdsim/config"
	"github.com/dswarbrick/ssdsim/params"
)

func testParams(t *testing.T) *params.Params {
	t.Helper()
	p, err := params.Derive(config.Profile{
		CapacityBytes: 1 << 24,
		Partitions:    1,
		Channels:      2,
		LUNsPerCh:     2,
		PlanesPerLUN:  1,
		BlockSizeBytes: 1 << 16,
	})
	require.NoError(t, err)
	return p
}

func TestAdvanceNANDUnmappedPPAIsNoOp(t *testing.T) {
	p := testParams(t)
	h := NewHierarchy(p, nil)
	timer := NewTimer(p, h, nil, nil, logr.Discard())

	end, err := timer.AdvanceNAND(Command{Kind: Read, PPA: UnmappedPPA, SubmitTime: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), end)
}

func TestAdvanceNANDWriteAdvancesLUN(t *testing.T) {
	p := testParams(t)
	h := NewHierarchy(p, nil)
	timer := NewTimer(p, h, nil, nil, logr.Discard())

	ppa := p.PackPPA(0, 0, 0, 0, 0, 0)
	end, err := timer.AdvanceNAND(Command{Kind: Write, PPA: ppa, XferSize: 4096, SubmitTime: 1})
	require.NoError(t, err)
	assert.True(t, end > 0)

	lun := h.LUNAt(0, 0)
	assert.Equal(t, end, lun.NextAvail)
}

func TestAdvanceNANDWriteEarlyCompletionAcksBeforeLUNIdle(t *testing.T) {
	p := testParams(t)
	p.WriteEarlyCompletion = true
	h := NewHierarchy(p, nil)
	timer := NewTimer(p, h, nil, nil, logr.Discard())

	ppa := p.PackPPA(0, 0, 0, 0, 0, 0)
	end, err := timer.AdvanceNAND(Command{Kind: Write, PPA: ppa, XferSize: 4096, SubmitTime: 1})
	require.NoError(t, err)

	lun := h.LUNAt(0, 0)
	// Host is acked at the channel completion, well before the LUN has
	// actually finished programming.
	assert.True(t, end < lun.NextAvail)
}

func TestAdvanceNANDEraseIncrementsBlockCount(t *testing.T) {
	p := testParams(t)
	h := NewHierarchy(p, nil)
	timer := NewTimer(p, h, nil, nil, logr.Discard())

	ppa := p.PackPPA(1, 1, 0, 2, 0, 0)
	_, err := timer.AdvanceNAND(Command{Kind: Erase, PPA: ppa, SubmitTime: 1})
	require.NoError(t, err)

	block := &h.Channels[1].LUNs[1].Planes[0].Blocks[2]
	assert.Equal(t, uint64(1), block.EraseCount)
}

func TestAdvanceNANDNopTracksLUNWithoutLatency(t *testing.T) {
	p := testParams(t)
	h := NewHierarchy(p, nil)
	timer := NewTimer(p, h, nil, nil, logr.Discard())

	ppa := p.PackPPA(0, 0, 0, 0, 0, 0)
	end, err := timer.AdvanceNAND(Command{Kind: Nop, PPA: ppa, SubmitTime: 42})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), end)
}

func TestAdvanceNANDUnsupportedCommandErrors(t *testing.T) {
	p := testParams(t)
	h := NewHierarchy(p, nil)
	timer := NewTimer(p, h, nil, nil, logr.Discard())

	ppa := p.PackPPA(0, 0, 0, 0, 0, 0)
	_, err := timer.AdvanceNAND(Command{Kind: CommandKind(99), PPA: ppa, SubmitTime: 1})
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestAdvanceNANDReadNeverStartsBeforeLUNIdle(t *testing.T) {
	p := testParams(t)
	h := NewHierarchy(p, nil)
	clock := func() uint64 { return 0 }
	timer := NewTimer(p, h, nil, clock, logr.Discard())

	ppa := p.PackPPA(0, 0, 0, 0, 0, 0)
	_, err := timer.AdvanceNAND(Command{Kind: Write, PPA: ppa, XferSize: 4096, SubmitTime: 1})
	require.NoError(t, err)

	lunBusyUntil := h.LUNAt(0, 0).NextAvail

	end, err := timer.AdvanceNAND(Command{Kind: Read, PPA: ppa, XferSize: 4096, SubmitTime: 0})
	require.NoError(t, err)
	assert.True(t, end >= lunBusyUntil)
}
