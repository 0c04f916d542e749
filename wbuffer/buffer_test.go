// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package wbuffer

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dswarbrick/ssdsim/config"
	"github.com/dswarbrick/ssdsim/params"
)

func testParams(t *testing.T, partitions uint32) *params.Params {
	t.Helper()
	p, err := params.Derive(config.Profile{
		CapacityBytes:  1 << 24,
		Partitions:     partitions,
		Channels:       2,
		LUNsPerCh:      2,
		PlanesPerLUN:   1,
		BlockSizeBytes: 1 << 16,
		PageSizeBytes:  4096,
		FlashPageSizeBytes:   8192, // 2 pages/slot
		OneshotPageSizeBytes: 8192,
		SectorSizeBytes: 512,
	})
	require.NoError(t, err)
	return p
}

func TestNewBufferAllStartFree(t *testing.T) {
	p := testParams(t, 1)
	b := New(1<<20, p, logr.Discard())

	assert.Equal(t, b.SlotsPerBuffer, b.FreeSlotCount())
	assert.Equal(t, 0, b.UsedSlotCount())
}

func TestAdmitCheckThenAdmitSucceeds(t *testing.T) {
	p := testParams(t, 1)
	b := New(1<<16, p, logr.Discard()) // small buffer, few slots

	ok := b.AdmitCheck(0, 0, 0, 512)
	require.True(t, ok)

	err := b.Admit(0, 0, 0, 512)
	require.NoError(t, err)

	assert.Equal(t, 1, b.UsedSlotCount())
}

func TestAdmitIsIdempotentOnSameSector(t *testing.T) {
	p := testParams(t, 1)
	b := New(1<<16, p, logr.Discard())

	require.NoError(t, b.Admit(0, 0, 0, 512))
	require.NoError(t, b.Admit(0, 0, 0, 512))

	pg, ok := b.Search(0)
	require.True(t, ok)
	assert.Equal(t, int(p.SectorsPerPage)-1, pg.FreeSectors)
}

func TestAdmitFillsMultiplePagesAcrossSlot(t *testing.T) {
	p := testParams(t, 1)
	b := New(1<<16, p, logr.Discard())

	// 2 pages/slot (flash_page_size=8192, page_size=4096); admitting 3 LPNs
	// must allocate a second slot.
	require.NoError(t, b.Admit(0, 2, 0, 3*p.PageSize))

	assert.Equal(t, 2, b.UsedSlotCount())

	for lpn := uint64(0); lpn <= 2; lpn++ {
		pg, ok := b.Search(lpn)
		require.True(t, ok, "lpn %d should be present", lpn)
		assert.Equal(t, lpn, pg.LPN)
	}
}

func TestAdmitReturnsTransientFullWhenExhausted(t *testing.T) {
	p := testParams(t, 1)
	b := New(int64SlotBytes(p, 1), p, logr.Discard()) // exactly 1 slot

	require.NoError(t, b.Admit(0, 0, 0, 512))

	// The only slot has 2 pages and 1 is occupied, so a second, disjoint LPN
	// still fits; admitting it fills the slot and exhausts the buffer.
	require.NoError(t, b.Admit(1, 1, 0, 512))

	err := b.Admit(2, 2, 0, 512)
	assert.ErrorIs(t, err, ErrTransientFull)
	assert.Equal(t, 0, b.FreeSlotCount())
	assert.Equal(t, 1, b.UsedSlotCount())
}

func int64SlotBytes(p *params.Params, slots int) uint64 {
	return uint64(slots) * p.PagesPerFlashPg * p.PageSize
}

func TestAdmitLeavesBufferUntouchedOnTransientFull(t *testing.T) {
	p := testParams(t, 1)
	b := New(int64SlotBytes(p, 1), p, logr.Discard())

	require.NoError(t, b.Admit(0, 0, 0, 512))
	require.NoError(t, b.Admit(1, 1, 0, 512))

	before := b.UsedSlotIndices()

	err := b.Admit(5, 5, 0, 512)
	assert.ErrorIs(t, err, ErrTransientFull)

	after := b.UsedSlotIndices()
	assert.Equal(t, before, after)

	_, found := b.Search(5)
	assert.False(t, found)
}

func TestMarkForFlushRejectsNonValidSlot(t *testing.T) {
	p := testParams(t, 1)
	b := New(1<<16, p, logr.Discard())

	require.NoError(t, b.Admit(0, 0, 0, 512))
	idx := b.UsedSlotIndices()[0]

	require.NoError(t, b.MarkForFlush(idx, 100))

	err := b.MarkForFlush(idx, 200)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestReleaseReclaimsMatchingStampOnly(t *testing.T) {
	p := testParams(t, 1)
	b := New(int64SlotBytes(p, 2), p, logr.Discard())

	require.NoError(t, b.Admit(0, 0, 0, 512))
	require.NoError(t, b.Admit(2, 2, 0, 512)) // same partition: fills the open slot's second page before a free slot is taken

	slots := b.UsedSlotIndices()
	require.Len(t, slots, 1) // both LPNs fit in one 2-page slot

	require.NoError(t, b.MarkForFlush(slots[0], 777))

	releasedWrongStamp := b.Release(999)
	assert.False(t, releasedWrongStamp)
	assert.Equal(t, 1, b.UsedSlotCount())

	releasedRightStamp := b.Release(777)
	assert.True(t, releasedRightStamp)
	assert.Equal(t, 0, b.UsedSlotCount())
	assert.Equal(t, b.SlotsPerBuffer, b.FreeSlotCount())
}

func TestRefillReclaimsEverythingUnconditionally(t *testing.T) {
	p := testParams(t, 1)
	b := New(1<<16, p, logr.Discard())

	require.NoError(t, b.Admit(0, 0, 0, 512))
	require.NoError(t, b.Admit(10, 10, 0, 512))
	require.True(t, b.UsedSlotCount() > 0)

	b.Refill()

	assert.Equal(t, 0, b.UsedSlotCount())
	assert.Equal(t, b.SlotsPerBuffer, b.FreeSlotCount())

	_, found := b.Search(0)
	assert.False(t, found)
}

func TestSearchIsInvisibleAcrossPartitionsAndAfterFlushMark(t *testing.T) {
	p := testParams(t, 2) // 2 partitions: even/odd LPNs split
	b := New(1<<16, p, logr.Discard())

	require.NoError(t, b.Admit(0, 0, 0, 512)) // partition 0
	require.NoError(t, b.Admit(1, 1, 0, 512)) // partition 1

	_, ok0 := b.Search(0)
	_, ok1 := b.Search(1)
	assert.True(t, ok0)
	assert.True(t, ok1)

	slots := b.UsedSlotIndices()
	require.NoError(t, b.MarkForFlush(slots[0], 55))

	// Whichever LPN landed in the now-FLUSHING slot becomes invisible.
	stillVisible := 0
	for _, lpn := range []uint64{0, 1} {
		if _, ok := b.Search(lpn); ok {
			stillVisible++
		}
	}
	assert.Equal(t, 1, stillVisible)
}

func TestAdmitAcrossPartitionsDrawsFromSharedFreePool(t *testing.T) {
	p := testParams(t, 2)
	b := New(int64SlotBytes(p, 2), p, logr.Discard()) // 2 slots total, shared

	// LPNs 0 and 2 both fall in partition 0 (even) and exhaust slot A's two
	// pages; LPN 1 falls in partition 1 (odd) and takes the only other slot.
	require.NoError(t, b.Admit(0, 0, 0, 512))
	require.NoError(t, b.Admit(2, 2, 0, 512))
	require.NoError(t, b.Admit(1, 1, 0, 512))

	assert.Equal(t, 0, b.FreeSlotCount())

	// LPN 4 is also partition 0, but partition 0's slot is full and the
	// shared free pool is empty: no slot anywhere can host it.
	err := b.Admit(4, 4, 0, 512)
	assert.ErrorIs(t, err, ErrTransientFull)
}
