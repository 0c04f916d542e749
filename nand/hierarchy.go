// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package nand models the static channel → LUN → plane → block → page →
// sector hierarchy and the command-dispatch arithmetic that turns a NAND
// command into a completion timestamp (SPEC_FULL §4.3).
package nand

import (
	"github.com/dswarbrick/ssdsim/params"
	"github.com/dswarbrick/ssdsim/timing"
)

// SectorStatus is the per-sector validity state.
type SectorStatus int8

const (
	SectorFree SectorStatus = iota
	SectorValid
	SectorInvalid
)

// PageStatus is the per-page validity state.
type PageStatus int8

const (
	PageFree PageStatus = iota
	PageValid
	PageInvalid
)

// Page is one NAND page's live state. The core never touches real payload
// bytes; it only tracks sector validity.
type Page struct {
	Status  PageStatus
	Sectors []SectorStatus
}

func newPage(sectorsPerPage uint64) Page {
	return Page{Status: PageFree, Sectors: make([]SectorStatus, sectorsPerPage)}
}

// Block is a NAND erase unit. EraseCount and WritePointer are bookkeeping
// fields the FTL reads and writes for wear levelling and allocation; the
// command timer only ever increments EraseCount (on ERASE) and never writes
// WritePointer, since address translation is out of this core's scope
// (SPEC_FULL §9, Open Question: write pointer).
type Block struct {
	Pages        []Page
	ValidPages   uint32
	InvalidPages uint32
	EraseCount   uint64
	WritePointer uint32
}

func newBlock(p *params.Params) Block {
	pages := make([]Page, p.PagesPerBlock)
	for i := range pages {
		pages[i] = newPage(p.SectorsPerPage)
	}
	return Block{Pages: pages}
}

// Plane owns a fixed array of blocks.
type Plane struct {
	Blocks []Block
}

func newPlane(p *params.Params) Plane {
	blocks := make([]Block, p.BlocksPerPlane)
	for i := range blocks {
		blocks[i] = newBlock(p)
	}
	return Plane{Blocks: blocks}
}

// LUN is the unit of NAND parallelism and availability tracking. NextAvail
// is non-decreasing over the lifetime of the simulation (SPEC_FULL §3); it
// is read and written only by the single dispatcher thread responsible for
// this LUN's partition (SPEC_FULL §5), so it carries no lock of its own.
type LUN struct {
	Planes    []Plane
	NextAvail uint64
	Busy      bool
}

func newLUN(p *params.Params) LUN {
	planes := make([]Plane, p.PlanesPerLUN)
	for i := range planes {
		planes[i] = newPlane(p)
	}
	return LUN{Planes: planes}
}

// Channel owns the LUNs wired to it and the bandwidth model serializing
// transfers across all of them.
type Channel struct {
	LUNs  []LUN
	Model timing.Channel
}

func newChannel(p *params.Params, model timing.Channel) Channel {
	luns := make([]LUN, p.LUNsPerChannel)
	for i := range luns {
		luns[i] = newLUN(p)
	}
	return Channel{LUNs: luns, Model: model}
}

// Hierarchy is the static channel → LUN → plane → block → page → sector
// tree for one SSD (or partition).
type Hierarchy struct {
	Channels []Channel
}

// NewHierarchy allocates the full hierarchy described by p. channelModel, if
// non-nil, is called once per channel to construct that channel's bandwidth
// model; the default constructs an unlocked ChannelModel, matching the
// recommended single-dispatcher-thread-per-channel topology (SPEC_FULL §5).
func NewHierarchy(p *params.Params, channelModel func() timing.Channel) *Hierarchy {
	if channelModel == nil {
		channelModel = func() timing.Channel {
			return timing.NewChannelModel(p.ChannelXferUnit, p.ChannelXferLatencyPerUnit)
		}
	}

	channels := make([]Channel, p.Channels)
	for i := range channels {
		channels[i] = newChannel(p, channelModel())
	}
	return &Hierarchy{Channels: channels}
}

// LUNAt returns a pointer to the LUN addressed by ch/lun.
func (h *Hierarchy) LUNAt(ch, lun uint64) *LUN {
	return &h.Channels[ch].LUNs[lun]
}

// NextIdleTime returns the maximum NextAvail across every LUN in the
// hierarchy, used by SSD.NextIdleTime.
func (h *Hierarchy) NextIdleTime() uint64 {
	var latest uint64
	for i := range h.Channels {
		for j := range h.Channels[i].LUNs {
			if t := h.Channels[i].LUNs[j].NextAvail; t > latest {
				latest = t
			}
		}
	}
	return latest
}
