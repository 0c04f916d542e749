// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package timing

// PCIeModel is the host-DMA channel bandwidth model (SPEC_FULL §4.4). It is
// a second, independent ChannelModel instance sized by the host-DMA
// bandwidth, used both standalone for write-buffer ingress and as a
// secondary stage behind reads when a command requests DMA interleaving.
type PCIeModel struct {
	channel Channel

	// WBufLatency0/1 encode the linear firmware write-buffer model
	// Y = A + B*X, where X is the transfer size in 4 KiB units.
	WBufLatency0 uint64
	WBufLatency1 uint64
}

// NewPCIeModel wraps the given channel (typically a *ChannelModel or
// *LockedChannelModel sized by the host-DMA bandwidth) with the firmware
// write-buffer latency coefficients.
func NewPCIeModel(channel Channel, wbufLatency0, wbufLatency1 uint64) *PCIeModel {
	return &PCIeModel{channel: channel, WBufLatency0: wbufLatency0, WBufLatency1: wbufLatency1}
}

// AdvancePCIe serializes a length-byte host-DMA transfer submitted at
// startTime through the underlying channel model.
func (p *PCIeModel) AdvancePCIe(startTime, length uint64) uint64 {
	return p.channel.Request(startTime, length)
}

// AdvanceWriteBuffer charges the firmware's linear write-buffer overhead
// (fw_wbuf_lat0 + fw_wbuf_lat1 * ceil(length/4KiB)) on top of startTime, then
// serializes the resulting transfer through the host-DMA channel.
func (p *PCIeModel) AdvanceWriteBuffer(startTime, length uint64) uint64 {
	const fourKiB = 4096
	units := (length + fourKiB - 1) / fourKiB
	adjustedStart := startTime + p.WBufLatency0 + p.WBufLatency1*units
	return p.AdvancePCIe(adjustedStart, length)
}
