// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dswarbrick/ssdsim/config"
)

func testProfile() config.Profile {
	return config.Profile{
		CapacityBytes: 1 << 30, // 1 GiB
		Partitions:    4,
		Channels:      8,
		LUNsPerCh:     2,
		PlanesPerLUN:  1,
		BlockSizeBytes: 1 << 20, // 1 MiB
	}
}

func TestDeriveDefaults(t *testing.T) {
	p, err := Derive(testProfile())
	require.NoError(t, err)

	assert.Equal(t, TLC, p.CellMode)
	assert.Equal(t, uint64(512), p.SectorSize)
	assert.Equal(t, uint64(4096), p.PageSize)
	assert.Equal(t, uint64(8), p.SectorsPerPage)
	assert.Equal(t, uint64(2), p.Channels) // 8 channels / 4 partitions
	assert.Equal(t, uint64(3), p.PartitionMask)
	assert.True(t, p.PagesPerBlock > 0)
}

func TestDerivePartitionsMustBePowerOfTwo(t *testing.T) {
	cfg := testProfile()
	cfg.Partitions = 3

	_, err := Derive(cfg)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "partitions", cfgErr.Field)
}

func TestDeriveChannelsMustDivideEvenly(t *testing.T) {
	cfg := testProfile()
	cfg.Channels = 5

	_, err := Derive(cfg)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "channels", cfgErr.Field)
}

func TestDeriveCapacityMustDivideEvenly(t *testing.T) {
	cfg := testProfile()
	cfg.CapacityBytes = 1001

	_, err := Derive(cfg)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "capacity_bytes", cfgErr.Field)
}

func TestPackUnpackPPARoundTrip(t *testing.T) {
	p, err := Derive(testProfile())
	require.NoError(t, err)

	cases := []struct{ ch, lun, plane, block, page, sector uint64 }{
		{0, 0, 0, 0, 0, 0},
		{1, 1, 0, 2, 3, 4},
		{p.Channels - 1, p.LUNsPerChannel - 1, p.PlanesPerLUN - 1, p.BlocksPerPlane - 1, p.PagesPerBlock - 1, p.SectorsPerPage - 1},
	}

	for _, c := range cases {
		ppa := p.PackPPA(c.ch, c.lun, c.plane, c.block, c.page, c.sector)
		ch, lun, plane, block, page, sector := p.UnpackPPA(ppa)
		assert.Equal(t, c.ch, ch)
		assert.Equal(t, c.lun, lun)
		assert.Equal(t, c.plane, plane)
		assert.Equal(t, c.block, block)
		assert.Equal(t, c.page, page)
		assert.Equal(t, c.sector, sector)
	}
}

func TestPartitionOfIsStable(t *testing.T) {
	p, err := Derive(testProfile())
	require.NoError(t, err)

	for lpn := uint64(0); lpn < 100; lpn++ {
		a := p.PartitionOf(lpn)
		b := p.PartitionOf(lpn)
		assert.Equal(t, a, b)
		assert.True(t, a >= 0 && uint64(a) < p.Partitions)
	}
}

func TestCellOfCyclesByMode(t *testing.T) {
	slc := &Params{CellMode: SLC}
	for i := uint64(0); i < 6; i++ {
		assert.Equal(t, CellLSB, slc.CellOf(i))
	}

	mlc := &Params{CellMode: MLC}
	assert.Equal(t, CellLSB, mlc.CellOf(0))
	assert.Equal(t, CellMSB, mlc.CellOf(1))
	assert.Equal(t, CellLSB, mlc.CellOf(2))

	tlc := &Params{CellMode: TLC}
	assert.Equal(t, CellLSB, tlc.CellOf(0))
	assert.Equal(t, CellMSB, tlc.CellOf(1))
	assert.Equal(t, CellCSB, tlc.CellOf(2))
	assert.Equal(t, CellLSB, tlc.CellOf(3))
}

func TestUnmappedPPAIsAllOnes(t *testing.T) {
	assert.Equal(t, ^uint64(0), UnmappedPPA)
}
