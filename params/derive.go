// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package params

import (
	"math/bits"

	"github.com/dswarbrick/ssdsim/config"
)

func deriveFromProfile(cfg config.Profile) (*Params, error) {
	if cfg.Partitions == 0 {
		return nil, &ConfigError{Field: "partitions", Got: cfg.Partitions, Want: "non-zero"}
	}
	if bits.OnesCount32(cfg.Partitions) != 1 {
		return nil, &ConfigError{Field: "partitions", Got: cfg.Partitions, Want: "a power of two"}
	}

	cellMode, err := parseCellMode(cfg.CellMode)
	if err != nil {
		return nil, err
	}

	channels := uint64(pickU64(uint64(cfg.Channels), defaultChannels))
	if channels%uint64(cfg.Partitions) != 0 {
		return nil, &ConfigError{Field: "channels", Got: channels, Want: "a multiple of partitions"}
	}
	channels /= uint64(cfg.Partitions)

	capacity := cfg.CapacityBytes
	if capacity == 0 {
		return nil, &ConfigError{Field: "capacity_bytes", Got: capacity, Want: "non-zero"}
	}
	if capacity%uint64(cfg.Partitions) != 0 {
		return nil, &ConfigError{Field: "capacity_bytes", Got: capacity, Want: "a multiple of partitions"}
	}
	capacity /= uint64(cfg.Partitions)

	lunsPerCh := pickU64(uint64(cfg.LUNsPerCh), defaultLUNsPerCh)
	plnsPerLUN := pickU64(uint64(cfg.PlanesPerLUN), defaultPlanesPerLUN)

	pageSize := pickU64(cfg.PageSizeBytes, defaultPageSize)
	sectorSize := pickU64(cfg.SectorSizeBytes, defaultSectorSize)
	if pageSize%sectorSize != 0 {
		return nil, &ConfigError{Field: "page_size_bytes", Got: pageSize, Want: "a multiple of sector_size_bytes"}
	}
	secsPerPg := pageSize / sectorSize

	flashPgSize := pickU64(cfg.FlashPageSizeBytes, defaultFlashPageSize)
	oneshotPgSize := pickU64(cfg.OneshotPageSizeBytes, defaultOneshotPageSize)

	if flashPgSize%pageSize != 0 {
		return nil, &ConfigError{Field: "flash_page_size_bytes", Got: flashPgSize, Want: "a multiple of page_size_bytes"}
	}
	if oneshotPgSize%pageSize != 0 {
		return nil, &ConfigError{Field: "oneshot_page_size_bytes", Got: oneshotPgSize, Want: "a multiple of page_size_bytes"}
	}
	if oneshotPgSize%flashPgSize != 0 {
		return nil, &ConfigError{Field: "oneshot_page_size_bytes", Got: oneshotPgSize, Want: "a multiple of flash_page_size_bytes"}
	}

	pgsPerFlashPg := flashPgSize / pageSize
	pgsPerOneshot := oneshotPgSize / pageSize

	var blkSize, blksPerPl uint64
	if cfg.BlocksPerPlane > 0 {
		blksPerPl = uint64(cfg.BlocksPerPlane)
		denom := blksPerPl * plnsPerLUN * lunsPerCh * channels
		if denom == 0 {
			return nil, &ConfigError{Field: "blocks_per_plane", Got: cfg.BlocksPerPlane, Want: "a configuration with non-zero LUN/plane/channel counts"}
		}
		blkSize = divRoundUp(capacity, denom)
	} else {
		blkSize = pickU64(cfg.BlockSizeBytes, defaultBlockSize)
		if blkSize == 0 {
			return nil, &ConfigError{Field: "block_size_bytes", Got: blkSize, Want: "non-zero when blocks_per_plane is unset"}
		}
		denom := blkSize * plnsPerLUN * lunsPerCh * channels
		blksPerPl = divRoundUp(capacity, denom)
	}

	oneshotPgsPerBlk := divRoundUp(blkSize, oneshotPgSize)
	pgsPerBlk := pgsPerOneshot * oneshotPgsPerBlk

	p := &Params{
		CellMode:         cellMode,
		SectorSize:       sectorSize,
		SectorsPerPage:   secsPerPg,
		PageSize:         pageSize,
		PagesPerFlashPg:  pgsPerFlashPg,
		PagesPerOneshot:  pgsPerOneshot,
		OneshotPgsPerBlk: oneshotPgsPerBlk,
		PagesPerBlock:    pgsPerBlk,
		BlocksPerPlane:   blksPerPl,
		PlanesPerLUN:     plnsPerLUN,
		LUNsPerChannel:   lunsPerCh,
		Channels:         channels,
		Partitions:       uint64(cfg.Partitions),
		PartitionMask:    uint64(cfg.Partitions) - 1,

		Read4KiBLatencyNs: [3]uint64{
			pickU64(cfg.Read4KiBLatencyNs[0], defaultRead4KiBLSB),
			pickU64(cfg.Read4KiBLatencyNs[1], defaultRead4KiBMSB),
			pickU64(cfg.Read4KiBLatencyNs[2], defaultRead4KiBCSB),
		},
		ReadLatencyNs: [3]uint64{
			pickU64(cfg.ReadLatencyNs[0], defaultReadLSB),
			pickU64(cfg.ReadLatencyNs[1], defaultReadMSB),
			pickU64(cfg.ReadLatencyNs[2], defaultReadCSB),
		},
		ProgramLatencyNs: pickU64(cfg.ProgramLatencyNs, defaultProgramLat),
		EraseLatencyNs:   pickU64(cfg.EraseLatencyNs, defaultEraseLat),

		MaxChannelXferSize: pickU64(cfg.MaxChannelXferSizeBytes, defaultMaxChXferSize),

		FWRead4KiBLatencyNs:    pickU64(cfg.FWReadLatency4KiBNs, defaultFWRead4KiBLat),
		FWReadLatencyNs:        pickU64(cfg.FWReadLatencyNs, defaultFWReadLat),
		FWChannelXferLatencyNs: pickU64(cfg.FWChannelXferLatencyNs, defaultFWChXferLat),
		FWWriteBufferLatency0:  pickU64(cfg.FWWriteBufferLatency0Ns, defaultFWWBufLatency0),
		FWWriteBufferLatency1:  pickU64(cfg.FWWriteBufferLatency1Ns, defaultFWWBufLatency1),

		NANDChannelBandwidthBps: pickU64(cfg.NANDChannelBandwidthBps, defaultNANDChannelBW),
		HostDMABandwidthBps:     pickU64(cfg.HostDMABandwidthBps, defaultHostDMABW),

		WriteBufferSize:      pickU64(cfg.WriteBufferSizeBytes, defaultWriteBufferSize),
		WriteEarlyCompletion: cfg.WriteEarlyCompletion,
	}

	p.TotalLUNs = p.LUNsPerChannel * p.Channels
	p.BlocksPerLUN = p.BlocksPerPlane * p.PlanesPerLUN

	p.ChannelXferUnit = transferUnitBytes
	p.ChannelXferLatencyPerUnit = divRoundUp(transferUnitBytes*nsPerSec, p.NANDChannelBandwidthBps)
	// Firmware per-channel transfer overhead folds into the per-unit latency,
	// mirroring ssd_init_ch()'s "xfer_lat += fw_ch_xfer_lat * UNIT_XFER_SIZE / KB(4)".
	p.ChannelXferLatencyPerUnit += divRoundUp(p.FWChannelXferLatencyNs*transferUnitBytes, 4096)

	p.PCIeXferUnit = transferUnitBytes
	p.PCIeXferLatencyPerUnit = divRoundUp(transferUnitBytes*nsPerSec, p.HostDMABandwidthBps)

	return p, nil
}

// PackPPA combines a (channel, lun, plane, block, page, sector) tuple into a
// stable mixed-radix physical page address. Geometry dimensions need not be
// powers of two, so this is not a literal bit-packing, but the mapping is
// total and reversible via UnpackPPA for any valid tuple.
func (p *Params) PackPPA(ch, lun, plane, block, page, sector uint64) uint64 {
	v := ch
	v = v*p.LUNsPerChannel + lun
	v = v*p.PlanesPerLUN + plane
	v = v*p.BlocksPerPlane + block
	v = v*p.PagesPerBlock + page
	v = v*p.SectorsPerPage + sector
	return v
}

// UnpackPPA is the inverse of PackPPA.
func (p *Params) UnpackPPA(ppa uint64) (ch, lun, plane, block, page, sector uint64) {
	sector = ppa % p.SectorsPerPage
	ppa /= p.SectorsPerPage
	page = ppa % p.PagesPerBlock
	ppa /= p.PagesPerBlock
	block = ppa % p.BlocksPerPlane
	ppa /= p.BlocksPerPlane
	plane = ppa % p.PlanesPerLUN
	ppa /= p.PlanesPerLUN
	lun = ppa % p.LUNsPerChannel
	ppa /= p.LUNsPerChannel
	ch = ppa
	return
}

// PartitionOf returns GET_FTL_IDX(lpn): the partition a logical page number
// belongs to. Partitions is enforced to be a power of two by Derive, so this
// bit-slice is a stable, order-independent mapping.
func (p *Params) PartitionOf(lpn uint64) int {
	return int(lpn & p.PartitionMask)
}

// CellOf derives the cell type of a page from its index within a block,
// cycling LSB/MSB[/CSB] according to CellMode.
func (p *Params) CellOf(pageInBlock uint64) CellType {
	switch p.CellMode {
	case SLC:
		return CellLSB
	case MLC:
		if pageInBlock%2 == 0 {
			return CellLSB
		}
		return CellMSB
	default: // TLC
		switch pageInBlock % 3 {
		case 0:
			return CellLSB
		case 1:
			return CellMSB
		default:
			return CellCSB
		}
	}
}
