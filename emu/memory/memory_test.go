package memory

/*
 * RV32 - Memory subsystem test cases
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
	"strings"
	"testing"

	config "github.com/rcornwell/RV32/config/configparser"
	"github.com/rcornwell/RV32/emu/trap"
)

func testMemory(t *testing.T) *Memory {
	t.Helper()
	mem, err := New([]Region{
		{Base: 0x0000, Size: 0x1000, Kind: RAM},
		{Base: 0x10000000, Size: 0x1000, Kind: MMIO},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return mem
}

func causeOf(t *testing.T, err error) trap.Cause {
	t.Helper()
	tr, ok := err.(*trap.Trap)
	if !ok {
		t.Fatalf("error is not a trap: %v", err)
	}
	return tr.Cause
}

// Word round trip over the whole of a RAM region.
func TestWordReadWrite(t *testing.T) {
	mem := testMemory(t)
	for addr := uint32(0); addr < 0x1000; addr += 4 {
		if err := mem.WriteWord(addr, addr^0xa5a5a5a5); err != nil {
			t.Errorf("WriteWord 0x%08x failed: %v", addr, err)
		}
	}
	for addr := uint32(0); addr < 0x1000; addr += 4 {
		r, err := mem.ReadWord(addr)
		if err != nil {
			t.Errorf("ReadWord 0x%08x failed: %v", addr, err)
		}
		if r != addr^0xa5a5a5a5 {
			t.Errorf("ReadWord not correct got: %08x expected: %08x", r, addr^0xa5a5a5a5)
		}
	}
}

// Words are stored little endian.
func TestLittleEndian(t *testing.T) {
	mem := testMemory(t)
	_ = mem.WriteWord(0x100, 0x11223344)
	want := []uint8{0x44, 0x33, 0x22, 0x11}
	for i, expect := range want {
		r, err := mem.ReadByte(0x100 + uint32(i))
		if err != nil {
			t.Errorf("ReadByte failed: %v", err)
		}
		if r != expect {
			t.Errorf("Byte %d not correct got: %02x expected: %02x", i, r, expect)
		}
	}
	half, _ := mem.ReadHalf(0x102)
	if half != 0x1122 {
		t.Errorf("ReadHalf not correct got: %04x expected: %04x", half, 0x1122)
	}
}

// Half loads are zero extended.
func TestHalfZeroExtend(t *testing.T) {
	mem := testMemory(t)
	_ = mem.WriteHalf(0x10, 0xffff)
	r, err := mem.ReadHalf(0x10)
	if err != nil {
		t.Errorf("ReadHalf failed: %v", err)
	}
	if r != 0x0000ffff {
		t.Errorf("ReadHalf not zero extended got: %08x expected: %08x", r, 0x0000ffff)
	}
}

// Widths 2 and 4 require natural alignment.
func TestMisaligned(t *testing.T) {
	mem := testMemory(t)
	if _, err := mem.ReadHalf(0x11); causeOf(t, err) != trap.MisalignedAccess {
		t.Errorf("ReadHalf alignment not checked: %v", err)
	}
	if _, err := mem.ReadWord(0x12); causeOf(t, err) != trap.MisalignedAccess {
		t.Errorf("ReadWord alignment not checked: %v", err)
	}
	if err := mem.WriteHalf(0x13, 0); causeOf(t, err) != trap.MisalignedAccess {
		t.Errorf("WriteHalf alignment not checked: %v", err)
	}
	if err := mem.WriteWord(0x16, 0); causeOf(t, err) != trap.MisalignedAccess {
		t.Errorf("WriteWord alignment not checked: %v", err)
	}
	// Bytes have no alignment constraint.
	if err := mem.WriteByte(0x11, 1); err != nil {
		t.Errorf("WriteByte should not check alignment: %v", err)
	}
}

// Unmapped loads fault as loads, stores as stores.
func TestUnmapped(t *testing.T) {
	mem := testMemory(t)
	if _, err := mem.ReadWord(0x2000); causeOf(t, err) != trap.LoadAccessFault {
		t.Errorf("Unmapped load wrong cause: %v", err)
	}
	if err := mem.WriteWord(0x2000, 0); causeOf(t, err) != trap.StoreAccessFault {
		t.Errorf("Unmapped store wrong cause: %v", err)
	}
	// Accesses ending exactly at the end of a region are mapped; a store
	// just past the end is not.
	if _, err := mem.ReadWord(0xffc); err != nil {
		t.Errorf("ReadWord at end of region failed: %v", err)
	}
	if err := mem.WriteHalf(0xffe, 0); err != nil {
		t.Errorf("WriteHalf at end of region failed: %v", err)
	}
	tr, ok := err2trap(mem.WriteWord(0xffc+4, 0))
	if !ok || tr.Cause != trap.StoreAccessFault {
		t.Errorf("Store past end of region should fault")
	}
}

func err2trap(err error) (*trap.Trap, bool) {
	tr, ok := err.(*trap.Trap)
	return tr, ok
}

// MMIO loads return zero, byte stores reach the handler.
func TestMMIO(t *testing.T) {
	mem := testMemory(t)
	var got []uint8
	mem.RegisterMMIO(0x10000000, func(_ uint32, value uint8) {
		got = append(got, value)
	})

	r, err := mem.ReadWord(0x10000000)
	if err != nil || r != 0 {
		t.Errorf("MMIO load not zero got: %08x err: %v", r, err)
	}
	if err := mem.WriteByte(0x10000000, 'A'); err != nil {
		t.Errorf("MMIO store failed: %v", err)
	}
	// Stores without a handler succeed silently.
	if err := mem.WriteByte(0x10000004, 'B'); err != nil {
		t.Errorf("MMIO store without handler failed: %v", err)
	}
	// A word store routes its low byte to the handler at base.
	if err := mem.WriteWord(0x10000000, 0x11223343); err != nil {
		t.Errorf("MMIO word store failed: %v", err)
	}
	if len(got) != 2 || got[0] != 'A' || got[1] != 0x43 {
		t.Errorf("MMIO handler bytes not correct got: %v expected: [65 67]", got)
	}
}

func TestFill(t *testing.T) {
	mem := testMemory(t)
	for addr := uint32(0x100); addr < 0x110; addr++ {
		_ = mem.WriteByte(addr, 0xff)
	}
	if err := mem.Fill(0x100, 0, 0x10); err != nil {
		t.Errorf("Fill failed: %v", err)
	}
	for addr := uint32(0x100); addr < 0x110; addr++ {
		if r, _ := mem.ReadByte(addr); r != 0 {
			t.Errorf("Fill byte 0x%08x not zero got: %02x", addr, r)
		}
	}
	// Fill of an unmapped range faults.
	if err := mem.Fill(0xff0, 0, 0x20); causeOf(t, err) != trap.StoreAccessFault {
		t.Errorf("Fill past region should fault: %v", err)
	}
}

func TestIsMapped(t *testing.T) {
	mem := testMemory(t)
	if !mem.IsMapped(0, 0x1000) {
		t.Errorf("IsMapped wrong for full region")
	}
	if mem.IsMapped(0xffc, 8) {
		t.Errorf("IsMapped wrong past end of region")
	}
	if !mem.IsMapped(0x10000000, 4) {
		t.Errorf("IsMapped wrong for MMIO")
	}
}

// Overlapping or oversize maps are configuration errors.
func TestBadMap(t *testing.T) {
	if _, err := New([]Region{
		{Base: 0, Size: 0x2000, Kind: RAM},
		{Base: 0x1000, Size: 0x1000, Kind: RAM},
	}); err == nil {
		t.Errorf("Overlapping regions not rejected")
	}
	if _, err := New([]Region{
		{Base: 0xfffff000, Size: 0x2000, Kind: RAM},
	}); err == nil {
		t.Errorf("Region past 32 bits not rejected")
	}
}

// MEMORY configuration lines build the region list.
func TestConfigRegions(t *testing.T) {
	configured = nil
	cfg := `
# platform
MEMORY 0x0000000 64K RAM
MEMORY 0x1000000 4M
MEMORY 0x2000000 0x1000 MMIO
`
	if err := config.LoadConfig(strings.NewReader(cfg)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	regions := Configured()
	want := []Region{
		{Base: 0x0000000, Size: 64 * 1024, Kind: RAM},
		{Base: 0x1000000, Size: 4 * 1024 * 1024, Kind: RAM},
		{Base: 0x2000000, Size: 0x1000, Kind: MMIO},
	}
	if len(regions) != len(want) {
		t.Fatalf("Region count not correct got: %d expected: %d", len(regions), len(want))
	}
	for i, r := range regions {
		if r != want[i] {
			t.Errorf("Region %d not correct got: %+v expected: %+v", i, r, want[i])
		}
	}
	configured = nil
}
