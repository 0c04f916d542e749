// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package config loads device geometry/latency profiles from TOML, the same
// encoding the drivedb tool uses for its model database.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Profile is the raw, human-editable input to params.Derive. Zero-valued
// latency/bandwidth fields fall back to the package defaults in params.
type Profile struct {
	CapacityBytes uint64 `toml:"capacity_bytes"`
	Partitions    uint32 `toml:"partitions"`

	// CellMode selects the per-page latency table: "SLC", "MLC" or "TLC".
	// Defaults to "TLC" when empty.
	CellMode string `toml:"cell_mode"`

	Channels     uint32 `toml:"channels"`
	LUNsPerCh    uint32 `toml:"luns_per_channel"`
	PlanesPerLUN uint32 `toml:"planes_per_lun"`

	// BlocksPerPlane, if non-zero, fixes the block count and derives block
	// size from capacity. If zero, BlockSizeBytes is used instead and the
	// block count is derived from capacity.
	BlocksPerPlane uint32 `toml:"blocks_per_plane"`
	BlockSizeBytes uint64 `toml:"block_size_bytes"`

	PageSizeBytes       uint64 `toml:"page_size_bytes"`
	FlashPageSizeBytes  uint64 `toml:"flash_page_size_bytes"`
	OneshotPageSizeBytes uint64 `toml:"oneshot_page_size_bytes"`
	SectorSizeBytes     uint64 `toml:"sector_size_bytes"`

	// Latency overrides, nanoseconds. Zero means "use the package default".
	Read4KiBLatencyNs [3]uint64 `toml:"read_4kib_latency_ns"`
	ReadLatencyNs      [3]uint64 `toml:"read_latency_ns"`
	ProgramLatencyNs   uint64    `toml:"program_latency_ns"`
	EraseLatencyNs     uint64    `toml:"erase_latency_ns"`

	MaxChannelXferSizeBytes uint64 `toml:"max_channel_xfer_size_bytes"`

	FWReadLatency4KiBNs uint64 `toml:"fw_read_latency_4kib_ns"`
	FWReadLatencyNs     uint64 `toml:"fw_read_latency_ns"`
	FWChannelXferLatencyNs uint64 `toml:"fw_channel_xfer_latency_ns"`
	FWWriteBufferLatency0Ns uint64 `toml:"fw_write_buffer_latency0_ns"`
	FWWriteBufferLatency1Ns uint64 `toml:"fw_write_buffer_latency1_ns"`

	NANDChannelBandwidthBps uint64 `toml:"nand_channel_bandwidth_bps"`
	HostDMABandwidthBps     uint64 `toml:"host_dma_bandwidth_bps"`

	WriteBufferSizeBytes uint64 `toml:"write_buffer_size_bytes"`
	WriteEarlyCompletion bool   `toml:"write_early_completion"`
}

// Load decodes a Profile from a TOML file at path.
func Load(path string) (Profile, error) {
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return Profile{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return p, nil
}
