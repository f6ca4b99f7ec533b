package memory

/*
 * RV32 - Region mapped guest memory
 *
 * Copyright 2025, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import (
	"encoding/binary"
	"errors"
	"fmt"

	config "github.com/rcornwell/RV32/config/configparser"
	"github.com/rcornwell/RV32/emu/trap"
)

// Kind of a memory region.
type Kind int

const (
	RAM  Kind = iota // Backed by a zero initialized buffer
	MMIO             // Routed to a device handler
)

// Region describes one contiguous range of the guest address space.
type Region struct {
	Base uint32 // First guest address.
	Size uint32 // Length in bytes.
	Kind Kind   // RAM or MMIO.
}

// MMIOHandler receives byte stores into MMIO space.
type MMIOHandler func(addr uint32, value uint8)

type region struct {
	Region
	data []byte // Backing store, RAM only.
}

// Memory maps guest addresses through the platform regions. RAM regions
// each own their backing buffer for the life of the subsystem. MMIO loads
// return zero; MMIO byte stores are routed to the registered handler.
type Memory struct {
	regions []region
	mmio    map[uint32]MMIOHandler
}

// New builds the subsystem from the platform memory map. Regions must not
// overlap and must fit within the 32 bit address space.
func New(regions []Region) (*Memory, error) {
	mem := &Memory{mmio: map[uint32]MMIOHandler{}}
	for _, r := range regions {
		if r.Size == 0 {
			return nil, fmt.Errorf("memory region at 0x%08x has no size", r.Base)
		}
		end := uint64(r.Base) + uint64(r.Size)
		if end > 0x100000000 {
			return nil, fmt.Errorf("memory region at 0x%08x extends past 32 bits", r.Base)
		}
		for _, prev := range mem.regions {
			if uint64(r.Base) < uint64(prev.Base)+uint64(prev.Size) && uint64(prev.Base) < end {
				return nil, fmt.Errorf("memory region at 0x%08x overlaps region at 0x%08x", r.Base, prev.Base)
			}
		}
		nr := region{Region: r}
		if r.Kind == RAM {
			nr.data = make([]byte, r.Size)
		}
		mem.regions = append(mem.regions, nr)
	}
	return mem, nil
}

// RegisterMMIO attaches a store handler to one MMIO byte address.
// Stores to MMIO addresses without a handler succeed without effect.
func (mem *Memory) RegisterMMIO(addr uint32, handler MMIOHandler) {
	mem.mmio[addr] = handler
}

// Return region fully containing [addr, addr+size), or nil.
func (mem *Memory) findRegion(addr uint32, size uint32) *region {
	end := uint64(addr) + uint64(size)
	for i := range mem.regions {
		r := &mem.regions[i]
		if addr >= r.Base && end <= uint64(r.Base)+uint64(r.Size) {
			return r
		}
	}
	return nil
}

// IsMapped reports whether one region covers [addr, addr+size).
func (mem *Memory) IsMapped(addr uint32, size uint32) bool {
	return mem.findRegion(addr, size) != nil
}

// ReadByte loads one byte.
func (mem *Memory) ReadByte(addr uint32) (uint8, error) {
	r := mem.findRegion(addr, 1)
	if r == nil {
		return 0, trap.LoadFault(addr)
	}
	if r.Kind == MMIO {
		return 0, nil
	}
	return r.data[addr-r.Base], nil
}

// ReadHalf loads a half word, zero extended. Requires 2 byte alignment.
func (mem *Memory) ReadHalf(addr uint32) (uint32, error) {
	if addr&1 != 0 {
		return 0, trap.Misaligned(addr)
	}
	r := mem.findRegion(addr, 2)
	if r == nil {
		return 0, trap.LoadFault(addr)
	}
	if r.Kind == MMIO {
		return 0, nil
	}
	return uint32(binary.LittleEndian.Uint16(r.data[addr-r.Base:])), nil
}

// ReadWord loads a word. Requires 4 byte alignment.
func (mem *Memory) ReadWord(addr uint32) (uint32, error) {
	if addr&3 != 0 {
		return 0, trap.Misaligned(addr)
	}
	r := mem.findRegion(addr, 4)
	if r == nil {
		return 0, trap.LoadFault(addr)
	}
	if r.Kind == MMIO {
		return 0, nil
	}
	return binary.LittleEndian.Uint32(r.data[addr-r.Base:]), nil
}

// WriteByte stores one byte.
func (mem *Memory) WriteByte(addr uint32, value uint8) error {
	r := mem.findRegion(addr, 1)
	if r == nil {
		return trap.StoreFault(addr)
	}
	if r.Kind == MMIO {
		if handler, ok := mem.mmio[addr]; ok {
			handler(addr, value)
		}
		return nil
	}
	r.data[addr-r.Base] = value
	return nil
}

// WriteHalf stores a half word. Requires 2 byte alignment.
func (mem *Memory) WriteHalf(addr uint32, value uint32) error {
	if addr&1 != 0 {
		return trap.Misaligned(addr)
	}
	r := mem.findRegion(addr, 2)
	if r == nil {
		return trap.StoreFault(addr)
	}
	if r.Kind == MMIO {
		mem.storeMMIO(addr, value, 2)
		return nil
	}
	binary.LittleEndian.PutUint16(r.data[addr-r.Base:], uint16(value))
	return nil
}

// WriteWord stores a word. Requires 4 byte alignment.
func (mem *Memory) WriteWord(addr uint32, value uint32) error {
	if addr&3 != 0 {
		return trap.Misaligned(addr)
	}
	r := mem.findRegion(addr, 4)
	if r == nil {
		return trap.StoreFault(addr)
	}
	if r.Kind == MMIO {
		mem.storeMMIO(addr, value, 4)
		return nil
	}
	binary.LittleEndian.PutUint32(r.data[addr-r.Base:], value)
	return nil
}

// Route a wide MMIO store byte by byte, little endian order.
func (mem *Memory) storeMMIO(addr uint32, value uint32, size uint32) {
	for i := uint32(0); i < size; i++ {
		if handler, ok := mem.mmio[addr+i]; ok {
			handler(addr+i, uint8(value>>(8*i)))
		}
	}
}

// Fill writes size bytes of value starting at addr, subject to the per
// byte mapping rules.
func (mem *Memory) Fill(addr uint32, value uint8, size uint32) error {
	for size > 0 {
		r := mem.findRegion(addr, 1)
		if r == nil {
			return trap.StoreFault(addr)
		}
		if r.Kind == MMIO {
			if err := mem.WriteByte(addr, value); err != nil {
				return err
			}
			addr++
			size--
			continue
		}
		// Fill the rest of this RAM region in one pass.
		span := r.Base + r.Size - addr
		if span > size {
			span = size
		}
		base := addr - r.Base
		for i := uint32(0); i < span; i++ {
			r.data[base+i] = value
		}
		addr += span
		size -= span
	}
	return nil
}

// Default platform memory map: low RAM for the program image, high RAM
// for stack and heap, and the console MMIO page.
func DefaultRegions() []Region {
	return []Region{
		{Base: 0x00000000, Size: 4 * 1024 * 1024, Kind: RAM},
		{Base: 0x00400000, Size: 124 * 1024 * 1024, Kind: RAM},
		{Base: 0x10000000, Size: 0x1000, Kind: MMIO},
	}
}

var configured []Region

// Register the MEMORY configuration keyword.
func init() {
	config.RegisterModel("MEMORY", createRegion)
}

// Handle a MEMORY configuration line: MEMORY <base> <size> RAM|MMIO.
func createRegion(addr uint32, options []config.Option) error {
	r := Region{Base: addr, Kind: RAM}
	haveSize := false
	for _, opt := range options {
		switch opt.Name {
		case "RAM":
			r.Kind = RAM
		case "MMIO":
			r.Kind = MMIO
		default:
			size, err := config.ParseNumber(opt.Name)
			if err != nil {
				return errors.New("unknown memory option: " + opt.Name)
			}
			r.Size = size
			haveSize = true
		}
	}
	if !haveSize {
		return errors.New("memory region needs a size")
	}
	configured = append(configured, r)
	return nil
}

// Configured returns the regions collected from the configuration file.
func Configured() []Region {
	return configured
}
