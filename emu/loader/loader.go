package loader

/*
 * RV32 - ELF executable loader
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
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/rcornwell/RV32/emu/memory"
	"github.com/rcornwell/RV32/emu/state"
)

// RISC-V relocation types handled by the loader.
const (
	rRiscv32       = 1
	rRiscvRelative = 3
	rRiscvJumpSlot = 5
)

// EF_RISCV_FLOAT_ABI field of e_flags. Only the soft float ABI runs on
// an integer only machine.
const floatABIMask = 0x6

// Load places every loadable segment of a statically linked RISC-V
// executable into guest memory, zero fills segment tails, applies any
// relocations and sets the entry PC. Returns the end of the image (one
// past its highest byte, the largest vaddr+memsz), the initial heap base.
func Load(path string, mem *memory.Memory, st *state.State) (uint32, error) {
	file, err := elf.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	if file.Class != elf.ELFCLASS32 || file.Data != elf.ELFDATA2LSB {
		return 0, fmt.Errorf("%s: not a 32 bit little endian executable", path)
	}
	if file.Machine != elf.EM_RISCV {
		return 0, fmt.Errorf("%s: not a RISC-V executable", path)
	}
	flags, err := readFlags(path)
	if err != nil {
		return 0, err
	}
	if flags&floatABIMask != 0 {
		return 0, fmt.Errorf("%s: hard float ABI not supported", path)
	}

	imageEnd := uint32(0)
	for _, prog := range file.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		vaddr := uint32(prog.Vaddr)
		data := make([]uint8, prog.Filesz)
		if _, err := io.ReadFull(prog.Open(), data); err != nil {
			return 0, fmt.Errorf("%s: short segment at 0x%08x", path, vaddr)
		}
		for i, by := range data {
			if err := mem.WriteByte(vaddr+uint32(i), by); err != nil {
				return 0, fmt.Errorf("%s: segment at 0x%08x outside platform memory", path, vaddr)
			}
		}
		tail := uint32(0)
		if prog.Memsz > prog.Filesz {
			tail = uint32(prog.Memsz - prog.Filesz)
		}
		if err := mem.Fill(vaddr+uint32(prog.Filesz), 0, tail); err != nil {
			return 0, fmt.Errorf("%s: segment at 0x%08x outside platform memory", path, vaddr)
		}
		if end := vaddr + uint32(prog.Memsz); end > imageEnd {
			imageEnd = end
		}
	}

	if err := relocate(file, mem); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	st.Reset(uint32(file.Entry))
	return imageEnd, nil
}

// Apply RELA relocations by patching little endian words in guest
// memory. Statically linked executables usually carry none.
func relocate(file *elf.File, mem *memory.Memory) error {
	var syms []elf.Symbol
	for _, sec := range file.Sections {
		if sec.Type != elf.SHT_RELA {
			continue
		}
		if syms == nil {
			syms = readSymbols(file, sec)
		}
		data, err := sec.Data()
		if err != nil {
			return err
		}
		// Elf32_Rela entries: offset, info, addend.
		for off := 0; off+12 <= len(data); off += 12 {
			rOffset := binary.LittleEndian.Uint32(data[off:])
			rInfo := binary.LittleEndian.Uint32(data[off+4:])
			rAddend := int32(binary.LittleEndian.Uint32(data[off+8:]))

			symVal := uint32(0)
			if index := rInfo >> 8; index != 0 && int(index) <= len(syms) {
				symVal = uint32(syms[index-1].Value)
			}

			var result uint32
			switch rInfo & 0xff {
			case rRiscvRelative:
				result = uint32(rAddend)
			case rRiscv32, rRiscvJumpSlot:
				result = symVal + uint32(rAddend)
			default:
				return fmt.Errorf("unsupported relocation type %d", rInfo&0xff)
			}
			for k := uint32(0); k < 4; k++ {
				if err := mem.WriteByte(rOffset+k, uint8(result>>(8*k))); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Symbols for the table a RELA section links against.
func readSymbols(file *elf.File, sec *elf.Section) []elf.Symbol {
	if int(sec.Link) < len(file.Sections) &&
		file.Sections[sec.Link].Type == elf.SHT_DYNSYM {
		syms, err := file.DynamicSymbols()
		if err == nil {
			return syms
		}
		return nil
	}
	syms, err := file.Symbols()
	if err != nil {
		return nil
	}
	return syms
}

// debug/elf does not expose e_flags; read it from the raw header.
func readFlags(path string) (uint32, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var hdr [0x28]uint8
	if _, err := io.ReadFull(file, hdr[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(hdr[0x24:]), nil
}
