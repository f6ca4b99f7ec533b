package trap

/*
 * RV32 - Synchronous trap values
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

import "fmt"

// Cause of a synchronous trap.
type Cause int

const (
	IllegalInstruction Cause = iota // Undefined opcode or encoding
	LoadAccessFault                 // Load of an unmapped address
	StoreAccessFault                // Store to an unmapped address
	MisalignedAccess                // Access without natural alignment
	EnvironmentCall                 // ECALL into the host ABI
)

var causeNames = [...]string{
	"illegal instruction",
	"load access fault",
	"store access fault",
	"misaligned access",
	"environment call",
}

func (cause Cause) String() string {
	if cause < 0 || int(cause) >= len(causeNames) {
		return "unknown"
	}
	return causeNames[cause]
}

// Trap describes one synchronous exception. The memory subsystem does not
// know the current PC, so traps it raises carry PC zero and the CPU front
// end fills in the faulting PC before reporting.
type Trap struct {
	Cause   Cause  // What went wrong.
	PC      uint32 // Address of the faulting instruction.
	Addr    uint32 // Faulting data address, if any.
	HasAddr bool   // Addr field is valid.
	Inst    uint32 // Raw instruction word.
}

func (t *Trap) Error() string {
	if t.HasAddr {
		return fmt.Sprintf("%v pc=%08x addr=%08x", t.Cause, t.PC, t.Addr)
	}
	return fmt.Sprintf("%v pc=%08x", t.Cause, t.PC)
}

// Illegal instruction detected during execute.
func Illegal(pc uint32, inst uint32) *Trap {
	return &Trap{Cause: IllegalInstruction, PC: pc, Inst: inst}
}

// Load of an address no region covers.
func LoadFault(addr uint32) *Trap {
	return &Trap{Cause: LoadAccessFault, Addr: addr, HasAddr: true}
}

// Store to an address no region covers.
func StoreFault(addr uint32) *Trap {
	return &Trap{Cause: StoreAccessFault, Addr: addr, HasAddr: true}
}

// Access without the natural alignment for its width.
func Misaligned(addr uint32) *Trap {
	return &Trap{Cause: MisalignedAccess, Addr: addr, HasAddr: true}
}

// Environment call at the given PC.
func EnvCall(pc uint32, inst uint32) *Trap {
	return &Trap{Cause: EnvironmentCall, PC: pc, Inst: inst}
}
