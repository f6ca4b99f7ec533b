package loader

/*
 * RV32 - ELF loader test cases
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
	"os"
	"path/filepath"
	"testing"

	"github.com/rcornwell/RV32/emu/memory"
	"github.com/rcornwell/RV32/emu/state"
)

// Build a minimal ELF32 executable with one loadable segment.
func buildElf(machine uint16, flags uint32, entry uint32, vaddr uint32, code []byte, bss uint32) []byte {
	le := binary.LittleEndian
	image := make([]byte, 52+32+len(code))

	copy(image, []byte{0x7f, 'E', 'L', 'F', 1, 1, 1})
	le.PutUint16(image[0x10:], 2) // ET_EXEC
	le.PutUint16(image[0x12:], machine)
	le.PutUint32(image[0x14:], 1)
	le.PutUint32(image[0x18:], entry)
	le.PutUint32(image[0x1c:], 52) // phoff
	le.PutUint32(image[0x24:], flags)
	le.PutUint16(image[0x28:], 52)
	le.PutUint16(image[0x2a:], 32)
	le.PutUint16(image[0x2c:], 1)
	le.PutUint16(image[0x2e:], 40)

	phdr := image[52:]
	le.PutUint32(phdr[0:], 1) // PT_LOAD
	le.PutUint32(phdr[4:], 84)
	le.PutUint32(phdr[8:], vaddr)
	le.PutUint32(phdr[12:], vaddr)
	le.PutUint32(phdr[16:], uint32(len(code)))
	le.PutUint32(phdr[20:], uint32(len(code))+bss)
	le.PutUint32(phdr[24:], 7)
	le.PutUint32(phdr[28:], 4)

	copy(image[84:], code)
	return image
}

func writeElf(t *testing.T, image []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guest.elf")
	if err := os.WriteFile(path, image, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func testMemory(t *testing.T) *memory.Memory {
	t.Helper()
	mem, err := memory.New([]memory.Region{
		{Base: 0, Size: 0x10000, Kind: memory.RAM},
	})
	if err != nil {
		t.Fatalf("memory.New failed: %v", err)
	}
	return mem
}

func TestLoad(t *testing.T) {
	code := make([]byte, 8)
	binary.LittleEndian.PutUint32(code[0:], 0x00100613) // addi a2,zero,1
	binary.LittleEndian.PutUint32(code[4:], 0x00000073) // ecall
	path := writeElf(t, buildElf(243, 0, 0x100, 0x100, code, 16))

	mem := testMemory(t)
	// Garbage in the bss range has to be cleared by the loader.
	_ = mem.WriteByte(0x10c, 0xff)

	st := state.New()
	imageEnd, err := Load(path, mem, st)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if r, _ := mem.ReadWord(0x100); r != 0x00100613 {
		t.Errorf("First word not loaded got: %08x expected: %08x", r, 0x00100613)
	}
	if r, _ := mem.ReadWord(0x104); r != 0x00000073 {
		t.Errorf("Second word not loaded got: %08x expected: %08x", r, 0x00000073)
	}
	if by, _ := mem.ReadByte(0x10c); by != 0 {
		t.Errorf("Segment tail not zero filled got: %02x", by)
	}
	if imageEnd != 0x100+8+16 {
		t.Errorf("Image end not correct got: %08x expected: %08x", imageEnd, 0x100+8+16)
	}
	if r := st.PC(); r != 0x100 {
		t.Errorf("Entry PC not set got: %08x expected: %08x", r, 0x100)
	}
}

func TestLoadRejects(t *testing.T) {
	code := []byte{0x13, 0, 0, 0}
	mem := testMemory(t)
	st := state.New()

	// Not a RISC-V executable.
	path := writeElf(t, buildElf(3, 0, 0x100, 0x100, code, 0))
	if _, err := Load(path, mem, st); err == nil {
		t.Errorf("Wrong machine not rejected")
	}

	// Hard float ABI.
	path = writeElf(t, buildElf(243, 0x4, 0x100, 0x100, code, 0))
	if _, err := Load(path, mem, st); err == nil {
		t.Errorf("Hard float ABI not rejected")
	}

	// Segment outside the platform memory map.
	path = writeElf(t, buildElf(243, 0, 0x100, 0x40000000, code, 0))
	if _, err := Load(path, mem, st); err == nil {
		t.Errorf("Unmapped segment not rejected")
	}

	// Not an ELF at all.
	bad := filepath.Join(t.TempDir(), "bad")
	if err := os.WriteFile(bad, []byte("not an elf"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(bad, mem, st); err == nil {
		t.Errorf("Non ELF file not rejected")
	}
}
