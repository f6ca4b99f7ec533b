package syscall

/*
 * RV32 - Guest system call handler
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

/*
   The guest runs against a minimal Linux style ABI: call number in a7,
   arguments in a0..a2, result in a0. Errors are reported to the guest
   as all ones in a0, never as a trap. The handler owns the process
   model: heap growth through brk, anonymous mappings growing down from
   just under the guest stack, and termination.
*/

import (
	"fmt"
	"io"
	"os"

	"github.com/rcornwell/RV32/emu/memory"
	"github.com/rcornwell/RV32/emu/state"
)

// Console is the host end of the guest standard streams.
type Console interface {
	ReadByte() (uint8, bool)
	Avail() bool
	Write(p []byte) (int, error)
	Flush() error
}

// Call numbers recognized by this ABI.
const (
	callRead   = 63
	callWrite  = 64
	callBrk    = 214
	callBrkOld = 80 // Older toolchain runtimes use this number.
	callMunmap = 215
	callMmap   = 222
	callExit   = 93
)

// Argument registers of the standard calling convention.
const (
	regSP = 2  // x2, guest stack pointer
	regA0 = 10 // x10, first argument and result
	regA1 = 11
	regA2 = 12
	regA7 = 17 // x17, call number
)

const (
	pageSize  = 4096
	stackGap  = 0x10000 // Reserved between stack and mmap space
	errResult = 0xffffffff
)

// Handler implements the guest process model.
type Handler struct {
	console  Console
	out      io.Writer // Host stdout for the exit message.
	diag     io.Writer
	imageEnd uint32 // End of the loaded image, one past its last byte.
	brk      uint32 // Current end of heap.
	mmapTop  uint32 // Low watermark of anonymous mappings.
	heapInit bool
	exitCode uint32
	exited   bool
}

func New(console Console) *Handler {
	return &Handler{console: console, out: os.Stdout, diag: os.Stderr}
}

// SetImageEnd records the end of the loaded image (one past its last
// byte), where the heap starts. Must be called before the guest makes
// its first heap call.
func (sys *Handler) SetImageEnd(end uint32) {
	sys.imageEnd = end
}

// SetOutput redirects the exit message and diagnostics, used by tests.
func (sys *Handler) SetOutput(out io.Writer, diag io.Writer) {
	sys.out = out
	sys.diag = diag
}

// ExitCode returns the guest exit code once exit has been called.
func (sys *Handler) ExitCode() (uint32, bool) {
	return sys.exitCode, sys.exited
}

// Call handles one environment call. The returned flag is false when
// the run should halt. A non-nil error is a memory trap that escaped
// from a guest buffer access.
func (sys *Handler) Call(st *state.State, mem *memory.Memory) (bool, error) {
	num := st.Reg(regA7)
	switch num {
	case callRead:
		return true, sys.read(st, mem)
	case callWrite:
		return true, sys.write(st, mem)
	case callBrk, callBrkOld:
		return true, sys.doBrk(st, mem)
	case callMmap:
		return true, sys.doMmap(st, mem)
	case callMunmap:
		sys.doMunmap(st)
		return true, nil
	case callExit:
		sys.exitCode = st.Reg(regA0)
		sys.exited = true
		fmt.Fprintf(sys.out, "\n[program exited with code %d]\n", sys.exitCode)
		return false, nil
	}
	fmt.Fprintf(sys.diag, "unknown syscall %d at pc=0x%08x\n", num, st.PC())
	return false, nil
}

// read(fd, buf, len): one blocking byte, then drain whatever input is
// already available. Only stdin is readable.
func (sys *Handler) read(st *state.State, mem *memory.Memory) error {
	fd := st.Reg(regA0)
	buf := st.Reg(regA1)
	length := st.Reg(regA2)

	if fd != 0 {
		st.SetReg(regA0, errResult)
		return nil
	}

	count := uint32(0)
	for count < length {
		if count > 0 && !sys.console.Avail() {
			break
		}
		by, ok := sys.console.ReadByte()
		if !ok {
			break
		}
		if err := mem.WriteByte(buf+count, by); err != nil {
			return err
		}
		count++
	}
	st.SetReg(regA0, count)
	return nil
}

// write(fd, buf, len): stdout and stderr both go to the host stdout.
func (sys *Handler) write(st *state.State, mem *memory.Memory) error {
	fd := st.Reg(regA0)
	buf := st.Reg(regA1)
	length := st.Reg(regA2)

	if fd != 1 && fd != 2 {
		st.SetReg(regA0, errResult)
		return nil
	}

	data := make([]uint8, 0, length)
	for i := uint32(0); i < length; i++ {
		by, err := mem.ReadByte(buf + i)
		if err != nil {
			return err
		}
		data = append(data, by)
	}
	_, _ = sys.console.Write(data)
	_ = sys.console.Flush()
	st.SetReg(regA0, length)
	return nil
}

// First heap or mmap call fixes the layout: heap starts at the image
// end, anonymous mappings grow down from under the guest stack.
func (sys *Handler) initHeap(st *state.State) {
	if sys.heapInit {
		return
	}
	sys.brk = sys.imageEnd
	sys.mmapTop = st.Reg(regSP) - stackGap
	sys.heapInit = true
}

// brk(new): zero means query. Growth zero fills the new range. The
// break may never cross into the mmap space.
func (sys *Handler) doBrk(st *state.State, mem *memory.Memory) error {
	sys.initHeap(st)
	newBrk := st.Reg(regA0)

	if newBrk == 0 {
		st.SetReg(regA0, sys.brk)
		return nil
	}
	if newBrk < sys.brk || newBrk >= sys.mmapTop-pageSize {
		st.SetReg(regA0, errResult)
		return nil
	}
	if err := mem.Fill(sys.brk, 0, newBrk-sys.brk); err != nil {
		return err
	}
	sys.brk = newBrk
	st.SetReg(regA0, newBrk)
	return nil
}

// mmap(_, len, ...): anonymous page aligned window immediately below
// the current watermark. Must keep a page of slack above the break.
func (sys *Handler) doMmap(st *state.State, mem *memory.Memory) error {
	sys.initHeap(st)
	length := (st.Reg(regA1) + pageSize - 1) &^ uint32(pageSize-1)

	base := int64(sys.mmapTop) - int64(length)
	if base < int64(sys.brk)+pageSize {
		st.SetReg(regA0, errResult)
		return nil
	}
	if err := mem.Fill(uint32(base), 0, length); err != nil {
		return err
	}
	sys.mmapTop = uint32(base)
	st.SetReg(regA0, sys.mmapTop)
	return nil
}

// munmap(addr, len): only the lowest mapping can be returned; anything
// else is accepted and ignored.
func (sys *Handler) doMunmap(st *state.State) {
	sys.initHeap(st)
	addr := st.Reg(regA0)
	length := (st.Reg(regA1) + pageSize - 1) &^ uint32(pageSize-1)

	if addr == sys.mmapTop {
		sys.mmapTop += length
	}
	st.SetReg(regA0, 0)
}
