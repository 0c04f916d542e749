// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package wbuffer

// findPage scans used VALID slots belonging to lpn's partition for a Page
// carrying that LPN (SPEC_FULL §9, Open Question: buffer_get_ppg partition
// filter — always filtered, the unfiltered variant is a bug).
func (b *Buffer) findPage(lpn uint64) (slotIdx, pageIdx int, ok bool) {
	partition := b.partitionOf(lpn)
	for _, idx := range b.usedSlots {
		s := &b.arena[idx]
		if s.Status != SlotValid || s.FTLIdx != partition {
			continue
		}
		for i := 0; i < s.FillCursor; i++ {
			if s.Pages[i].LPN == lpn {
				return idx, i, true
			}
		}
	}
	return 0, 0, false
}

// findOpenSlot returns a used VALID slot belonging to partition with room
// for at least one more page.
func (b *Buffer) findOpenSlot(partition int) (slotIdx int, ok bool) {
	for _, idx := range b.usedSlots {
		s := &b.arena[idx]
		if s.Status == SlotValid && s.FTLIdx == partition && s.FillCursor < int(b.PagesPerSlot) {
			return idx, true
		}
	}
	return 0, false
}

// takeFreeSlot pops the head of freeSlots, moves it to the tail of
// usedSlots, and stamps it for partition. Caller must hold b.mu and must
// have already verified freeSlots is non-empty.
func (b *Buffer) takeFreeSlot(partition int) int {
	idx := b.freeSlots[0]
	b.freeSlots = b.freeSlots[1:]
	b.usedSlots = append(b.usedSlots, idx)

	s := &b.arena[idx]
	s.Status = SlotValid
	s.FTLIdx = partition
	s.FillCursor = 0
	return idx
}

// requiredPages tallies, per partition, how many pages in [startLPN,endLPN]
// are not already present in a VALID used slot of that partition.
func (b *Buffer) requiredPages(startLPN, endLPN uint64) map[int]int {
	required := make(map[int]int)
	for lpn := startLPN; lpn <= endLPN; lpn++ {
		if _, _, ok := b.findPage(lpn); !ok {
			required[b.partitionOf(lpn)]++
		}
	}
	return required
}

// canAdmit reports whether required's per-partition page demand can be
// satisfied from each partition's leftover capacity in partially filled
// VALID used slots, topped up by the shared free-slot pool (SPEC_FULL
// §4.5.1). Caller must hold b.mu.
func (b *Buffer) canAdmit(required map[int]int) bool {
	leftover := make(map[int]int)
	for _, idx := range b.usedSlots {
		s := &b.arena[idx]
		if s.Status == SlotValid {
			leftover[s.FTLIdx] += int(b.PagesPerSlot) - s.FillCursor
		}
	}

	var freeSlotsNeeded int
	for partition, need := range required {
		extra := need - leftover[partition]
		if extra > 0 {
			freeSlotsNeeded += (extra + int(b.PagesPerSlot) - 1) / int(b.PagesPerSlot)
		}
	}

	return freeSlotsNeeded <= len(b.freeSlots)
}

// AdmitCheck is a pure inspection: it reports whether a subsequent Admit for
// the same arguments would succeed, without mutating the buffer.
func (b *Buffer) AdmitCheck(startLPN, endLPN, startOffset, size uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	required := b.requiredPages(startLPN, endLPN)
	return b.canAdmit(required)
}

// writeLenFor computes how many bytes of the admit's payload the page at
// lpn covers, given the overall [startLPN,endLPN] span and startOffset/size.
func writeLenFor(lpn, startLPN, endLPN, startOffset, size, sectorsPerPage, sectorSize uint64, consumed uint64) uint64 {
	switch {
	case startLPN == endLPN:
		return size
	case lpn == startLPN:
		maxFirst := (sectorsPerPage - startOffset) * sectorSize
		if size-consumed < maxFirst {
			return size - consumed
		}
		return maxFirst
	case lpn == endLPN:
		return size - consumed
	default:
		return sectorsPerPage * sectorSize
	}
}

// Admit fills the buffer LPN by LPN for [startLPN,endLPN], writing size
// bytes starting startOffset sectors into the first page. It re-verifies
// admissibility under the lock before mutating anything (SPEC_FULL §5
// contract (a)): on a lost race against a concurrent admit/release it
// returns ErrTransientFull and leaves every slot untouched.
func (b *Buffer) Admit(startLPN, endLPN, startOffset, size uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	required := b.requiredPages(startLPN, endLPN)
	if !b.canAdmit(required) {
		return ErrTransientFull
	}

	var consumed uint64
	offset := startOffset * b.SectorSize
	for lpn := startLPN; lpn <= endLPN; lpn++ {
		writeLen := writeLenFor(lpn, startLPN, endLPN, startOffset, size, b.SectorsPerPage, b.SectorSize, consumed)
		b.fillPage(lpn, offset, writeLen)
		consumed += writeLen
		offset = 0
	}

	return nil
}

// fillPage writes [offset, offset+length) bytes into the Page tracking lpn,
// allocating a slot/page slot if one doesn't already exist. Caller must hold
// b.mu.
func (b *Buffer) fillPage(lpn, offset, length uint64) {
	if length == 0 {
		return
	}

	partition := b.partitionOf(lpn)

	slotIdx, pageIdx, ok := b.findPage(lpn)
	if !ok {
		slotIdx, ok = b.findOpenSlot(partition)
		if !ok {
			slotIdx = b.takeFreeSlot(partition)
		}
		s := &b.arena[slotIdx]
		pageIdx = s.FillCursor
		s.Pages[pageIdx].LPN = lpn
		s.FillCursor++
	}

	page := &b.arena[slotIdx].Pages[pageIdx]

	startSector := offset / b.SectorSize
	numSectors := (length + b.SectorSize - 1) / b.SectorSize
	for i := uint64(0); i < numSectors; i++ {
		sec := startSector + i
		if !page.Bitmap[sec] {
			page.Bitmap[sec] = true
			page.FreeSectors--
		}
	}
}
