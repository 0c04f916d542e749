// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package params derives the full SSD geometry and timing constant set from
// a capacity and partition count, the way ssd_init_params() does in the
// original NVMeVirt core.
package params

import (
	"fmt"

	"github.com/dswarbrick/ssdsim/config"
)

// CellType indexes the per-cell-type latency tables.
type CellType int

const (
	CellLSB CellType = iota
	CellMSB
	CellCSB
)

// CellMode selects how many bits per cell a page belongs to, and therefore
// how page latency cycles across a block's pages.
type CellMode int

const (
	SLC CellMode = iota + 1 // 1 bit/cell
	MLC                     // 2 bits/cell
	TLC                     // 3 bits/cell
)

func (m CellMode) String() string {
	switch m {
	case SLC:
		return "SLC"
	case MLC:
		return "MLC"
	case TLC:
		return "TLC"
	default:
		return "unknown"
	}
}

func parseCellMode(s string) (CellMode, error) {
	switch s {
	case "", "TLC":
		return TLC, nil
	case "MLC":
		return MLC, nil
	case "SLC":
		return SLC, nil
	default:
		return 0, &ConfigError{Field: "cell_mode", Got: s, Want: "one of SLC, MLC, TLC"}
	}
}

// ConfigError reports a geometry input that cannot be made internally
// consistent. It is fatal: callers must not attempt to recover a Params from
// a failed Derive call.
type ConfigError struct {
	Field string
	Got   any
	Want  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("params: invalid %s: got %v, want %s", e.Field, e.Got, e.Want)
}

// UnmappedPPA is the sentinel physical page address meaning "no mapping".
const UnmappedPPA uint64 = ^uint64(0)

// Default latency/bandwidth constants, lifted from the reference NVMeVirt
// core (original_source/ssd.c) so a Profile that leaves them at zero still
// derives a realistic device.
const (
	defaultSectorSize      = 512
	defaultPageSize        = 4096
	defaultFlashPageSize   = 32 * 1024
	defaultOneshotPageSize = 32 * 1024

	defaultChannels     = 8
	defaultLUNsPerCh    = 8
	defaultPlanesPerLUN = 1
	defaultBlockSize    = 256 * 1024 * 1024

	defaultRead4KiBLSB = 36000
	defaultRead4KiBMSB = 38000
	defaultRead4KiBCSB = 40000
	defaultReadLSB     = 40000
	defaultReadMSB     = 45000
	defaultReadCSB     = 50000
	defaultProgramLat  = 200000
	defaultEraseLat    = 2000000

	defaultMaxChXferSize = 16 * 1024

	defaultFWRead4KiBLat    = 21519
	defaultFWReadLat        = 30249
	defaultFWChXferLat      = 0
	defaultFWWBufLatency0   = 1000
	defaultFWWBufLatency1   = 500

	defaultNANDChannelBW = 800 * 1024 * 1024 // bytes/sec
	defaultHostDMABW     = 4 * 1024 * 1024 * 1024

	defaultWriteBufferSize = 64 * 1024 * 1024

	// transferUnitBytes is the granularity the channel bandwidth model
	// charges latency in; ceil(length/transferUnitBytes) units are billed
	// per request (SPEC_FULL §4.2).
	transferUnitBytes = 4
	nsPerSec          = 1_000_000_000
)

// Params is the fully derived, immutable geometry and timing record for one
// SSD (or, since capacity and channels are partitioned up front, for one
// partition's worth of device as seen by its dispatcher thread).
type Params struct {
	CellMode CellMode

	SectorSize      uint64
	SectorsPerPage  uint64
	PageSize        uint64
	PagesPerFlashPg uint64
	PagesPerOneshot uint64
	OneshotPgsPerBlk uint64
	PagesPerBlock   uint64
	BlocksPerPlane  uint64
	PlanesPerLUN    uint64
	LUNsPerChannel  uint64
	Channels        uint64
	Partitions      uint64

	// PartitionMask implements the chosen GET_FTL_IDX(lpn) mapping:
	// lpn & PartitionMask. Partitions must be a power of two for this to be
	// a valid partition selector; Derive enforces that.
	PartitionMask uint64

	TotalLUNs   uint64
	BlocksPerLUN uint64

	Read4KiBLatencyNs [3]uint64
	ReadLatencyNs     [3]uint64
	ProgramLatencyNs  uint64
	EraseLatencyNs    uint64

	MaxChannelXferSize uint64

	FWRead4KiBLatencyNs    uint64
	FWReadLatencyNs        uint64
	FWChannelXferLatencyNs uint64
	FWWriteBufferLatency0  uint64
	FWWriteBufferLatency1  uint64

	NANDChannelBandwidthBps uint64
	HostDMABandwidthBps     uint64

	// ChannelXferUnit / ChannelXferLatencyPerUnit parameterize the NAND
	// channel bandwidth model: Request(start, length) bills
	// ceil(length/ChannelXferUnit) * ChannelXferLatencyPerUnit.
	ChannelXferUnit           uint64
	ChannelXferLatencyPerUnit uint64

	// PCIeXferUnit / PCIeXferLatencyPerUnit parameterize the shared
	// host-DMA channel the same way.
	PCIeXferUnit           uint64
	PCIeXferLatencyPerUnit uint64

	WriteBufferSize      uint64
	WriteEarlyCompletion bool
}

func pickU64(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}

func divRoundUp(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// Derive computes the full geometry/timing record from cfg, partitioning
// channels and capacity by cfg.Partitions the way ssd_init_params does.
func Derive(cfg config.Profile) (*Params, error) {
	return deriveFromProfile(cfg)
}
