// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package wbuffer implements the host-side write buffer: a partitioned pool
// of flash-page-sized slots that admits host writes, tracks per-sector
// validity, and exposes flush candidates to the FTL (SPEC_FULL §4.5).
//
// Slots live in one arena allocated at construction time; free_slots and
// used_slots are index lists over that arena rather than kernel-style
// intrusive pointers (SPEC_FULL §9 / Design Note on representation).
package wbuffer

import (
	"errors"
	"sync"

	"github.com/go-logr/logr"

	"github.com/dswarbrick/ssdsim/params"
)

// InvalidLPN is the sentinel logical page number meaning "no page here".
const InvalidLPN uint64 = ^uint64(0)

// SlotStatus is a write-buffer slot's lifecycle state.
type SlotStatus int8

const (
	SlotValid SlotStatus = iota
	SlotFlushing
)

// ErrTransientFull is returned by Admit when the buffer cannot find capacity
// for the requested range; the caller (FTL) is expected to flush and retry.
// No slot is mutated when this error is returned.
var ErrTransientFull = errors.New("wbuffer: insufficient capacity")

// ErrInvalidState reports a caller contract violation that is logged and
// non-fatal: MarkForFlush returns it for a non-VALID slot. Release does not
// return it; a Release that reclaims nothing while FLUSHING slots remain
// unmatched is logged at debug verbosity and reports false.
var ErrInvalidState = errors.New("wbuffer: invalid slot state transition")

// Page is one 4 KiB logical page staged inside a slot.
type Page struct {
	LPN         uint64
	FreeSectors int
	Bitmap      []bool
}

func newPage(sectorsPerPage uint64) Page {
	return Page{LPN: InvalidLPN, FreeSectors: int(sectorsPerPage), Bitmap: make([]bool, sectorsPerPage)}
}

func (pg *Page) reset(sectorsPerPage uint64) {
	pg.LPN = InvalidLPN
	pg.FreeSectors = int(sectorsPerPage)
	for i := range pg.Bitmap {
		pg.Bitmap[i] = false
	}
}

// Slot is a flash-page-sized staging area holding PagesPerSlot Pages.
type Slot struct {
	Status       SlotStatus
	CompleteTime uint64
	FTLIdx       int // -1 when free
	FillCursor   int
	Pages        []Page
}

// Buffer is the partition-aware write buffer. One Buffer serves every
// partition of the SSD: AdmitCheck/Admit reason about page demand per
// partition, but free slots are drawn from one shared pool (SPEC_FULL §9,
// "picks the single partition-aware buffer" design choice).
type Buffer struct {
	mu sync.Mutex

	arena []Slot

	// freeSlots and usedSlots hold arena indices. freeSlots is treated as a
	// queue (take from the head, reclaimed slots appended at the tail);
	// usedSlots preserves admit order.
	freeSlots []int
	usedSlots []int

	SectorSize     uint64
	SectorsPerPage uint64
	PagesPerSlot   uint64
	SlotsPerBuffer int
	FlushThreshold int
	Partitions     int
	partitionMask  uint64

	logger logr.Logger
}

// New allocates a write buffer of sizeBytes (the buffer derives its slot
// count from the flash-page size, p.PagesPerFlashPg * p.PageSize).
func New(sizeBytes uint64, p *params.Params, logger logr.Logger) *Buffer {
	flashPgSize := p.PagesPerFlashPg * p.PageSize
	slotsPerBuffer := int(sizeBytes / flashPgSize)

	b := &Buffer{
		arena:          make([]Slot, slotsPerBuffer),
		freeSlots:      make([]int, 0, slotsPerBuffer),
		usedSlots:      make([]int, 0, slotsPerBuffer),
		SectorSize:     p.SectorSize,
		SectorsPerPage: p.SectorsPerPage,
		PagesPerSlot:   p.PagesPerFlashPg,
		SlotsPerBuffer: slotsPerBuffer,
		FlushThreshold: slotsPerBuffer / 2,
		Partitions:     int(p.Partitions),
		partitionMask:  p.PartitionMask,
		logger:         logger,
	}

	for i := range b.arena {
		pages := make([]Page, b.PagesPerSlot)
		for j := range pages {
			pages[j] = newPage(b.SectorsPerPage)
		}
		b.arena[i] = Slot{FTLIdx: -1, Pages: pages}
		b.freeSlots = append(b.freeSlots, i)
	}

	return b
}

func (b *Buffer) partitionOf(lpn uint64) int {
	return int(lpn & b.partitionMask)
}

// FreeSlotCount and UsedSlotCount expose list sizes (the total is the
// SlotsPerBuffer field) for tests and invariant checks (SPEC_FULL §8
// invariant 4).
func (b *Buffer) FreeSlotCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.freeSlots)
}

func (b *Buffer) UsedSlotCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.usedSlots)
}

// Slot returns a copy of the arena slot at idx, for inspection by tests and
// by the FTL when picking flush candidates.
func (b *Buffer) Slot(idx int) Slot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.arena[idx]
}

// UsedSlotIndices returns a snapshot of the current used-slot arena indices,
// in admit order, for the FTL to pick flush candidates from.
func (b *Buffer) UsedSlotIndices() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int, len(b.usedSlots))
	copy(out, b.usedSlots)
	return out
}
