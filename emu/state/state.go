package state

/*
 * RV32 - Architectural state
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

import "errors"

// Number of general purpose registers.
const NumRegisters = 32

// An out of range register index is a programming error, not a guest
// visible condition. Access with a bad index panics with this value.
var ErrInvalidRegister = errors.New("invalid register index")

// State holds the registers and PC visible to the instruction set.
// Register x0 is hardwired to zero. The PC is never updated implicitly;
// the execution engine and the syscall handler own all mutation.
type State struct {
	regs [NumRegisters]uint32
	pc   uint32
}

func New() *State {
	return &State{}
}

// Reg returns the value of a general purpose register.
func (st *State) Reg(index uint32) uint32 {
	if index >= NumRegisters {
		panic(ErrInvalidRegister)
	}
	if index == 0 {
		return 0
	}
	return st.regs[index]
}

// SetReg sets a general purpose register. Writes to x0 are discarded.
func (st *State) SetReg(index uint32, value uint32) {
	if index >= NumRegisters {
		panic(ErrInvalidRegister)
	}
	if index != 0 {
		st.regs[index] = value
	}
}

// PC returns the current program counter.
func (st *State) PC() uint32 {
	return st.pc
}

// SetPC sets the program counter.
func (st *State) SetPC(value uint32) {
	st.pc = value
}

// Reset clears all registers and starts execution at entry.
func (st *State) Reset(entry uint32) {
	for i := range st.regs {
		st.regs[i] = 0
	}
	st.pc = entry
}
