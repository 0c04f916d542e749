// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package wbuffer

// MarkForFlush transitions slotIdx from VALID to FLUSHING and stamps it with
// completeTime, the timestamp the FTL expects the underlying flash write to
// finish at. It is an error to mark a slot that is not currently VALID.
func (b *Buffer) MarkForFlush(slotIdx int, completeTime uint64) error {
	b.mu.Lock()
	s := &b.arena[slotIdx]
	if s.Status != SlotValid {
		b.mu.Unlock()
		b.logger.Error(ErrInvalidState, "mark_for_flush on non-valid slot", "slot", slotIdx, "status", s.Status)
		return ErrInvalidState
	}
	s.Status = SlotFlushing
	s.CompleteTime = completeTime
	b.mu.Unlock()
	return nil
}

// Release reclaims every FLUSHING slot stamped with completeTime, resetting
// its pages and returning it to the free pool. It reports whether any slot
// was reclaimed.
func (b *Buffer) Release(completeTime uint64) bool {
	b.mu.Lock()

	remaining := make([]int, 0, len(b.usedSlots))
	var reclaimed int
	var flushingExists bool

	for _, idx := range b.usedSlots {
		s := &b.arena[idx]
		if s.Status == SlotFlushing && s.CompleteTime == completeTime {
			b.reclaim(idx)
			reclaimed++
		} else {
			if s.Status == SlotFlushing {
				flushingExists = true
			}
			remaining = append(remaining, idx)
		}
	}
	b.usedSlots = remaining

	ok := reclaimed > 0
	b.mu.Unlock()

	// A release that reclaims nothing is only an InvalidState-flavored
	// condition when FLUSHING slots exist but none match completeTime; a
	// routine poll of an idle buffer with no FLUSHING slots at all is not
	// worth logging (SPEC_FULL §7).
	if !ok && flushingExists {
		b.logger.V(1).Info("release matched no flushing slot", "complete_time", completeTime)
	}
	return ok
}

// reclaim resets slot idx's pages and moves it back to the free pool. Caller
// must hold b.mu.
func (b *Buffer) reclaim(idx int) {
	s := &b.arena[idx]
	for i := range s.Pages {
		s.Pages[i].reset(b.SectorsPerPage)
	}
	s.Status = SlotValid
	s.CompleteTime = 0
	s.FTLIdx = -1
	s.FillCursor = 0
	b.freeSlots = append(b.freeSlots, idx)
}

// Refill is the emergency reclaim path: every used slot is reset and
// returned to the free pool regardless of status or flush stamp. Callers
// use this when the buffer must be drained unconditionally (e.g. shutdown
// or a hard reset), not as part of the ordinary admit/flush/release cycle.
func (b *Buffer) Refill() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, idx := range b.usedSlots {
		b.reclaim(idx)
	}
	b.usedSlots = b.usedSlots[:0]
}

// Search scans used VALID slots for a Page carrying lpn and returns a copy
// of it. Pages in FLUSHING slots are not visible to Search: once a slot is
// marked for flush its data is considered committed to flash, not buffered.
func (b *Buffer) Search(lpn uint64) (Page, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	slotIdx, pageIdx, ok := b.findPage(lpn)
	if !ok {
		return Page{}, false
	}

	src := b.arena[slotIdx].Pages[pageIdx]
	out := Page{LPN: src.LPN, FreeSectors: src.FreeSectors, Bitmap: make([]bool, len(src.Bitmap))}
	copy(out.Bitmap, src.Bitmap)
	return out, true
}
