package cpu

/*
 * RV32 - CPU front end
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
   The front end ties fetch, decode, execute and trap dispatch together.
   It owns no instruction semantics; those live in cpu_standard.go so
   that PC updates stay under one roof.

   Per step: read PC, check word alignment, load the instruction word,
   decode, optionally emit a trace record, execute. An environment call
   is handed to the syscall handler and execution resumes past the
   ECALL; any other trap halts the run with a diagnostic block.
*/

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	config "github.com/rcornwell/RV32/config/configparser"
	"github.com/rcornwell/RV32/emu/decode"
	"github.com/rcornwell/RV32/emu/memory"
	"github.com/rcornwell/RV32/emu/state"
	"github.com/rcornwell/RV32/emu/trap"
	hex "github.com/rcornwell/RV32/util/hex"
)

// Handler processes environment calls on behalf of the guest. The
// returned flag asks for the run to continue or halt; an error is a
// trap that escaped the handler (a fault on a guest buffer).
type Handler interface {
	Call(st *state.State, mem *memory.Memory) (bool, error)
}

// Core drives one architectural state against one memory subsystem.
type Core struct {
	regs      *state.State
	mem       *memory.Memory
	sys       Handler
	trace     io.Writer
	diag      io.Writer
	instCount uint64
}

func New(st *state.State, mem *memory.Memory, sys Handler) *Core {
	core := &Core{regs: st, mem: mem, sys: sys, diag: os.Stderr}
	if traceFile != nil {
		core.trace = traceFile
	}
	return core
}

// SetTrace directs the instruction trace to a sink. Overrides any
// TRACEFILE from the configuration file.
func (core *Core) SetTrace(out io.Writer) {
	core.trace = out
}

// SetDiag redirects the trap diagnostic, used by tests.
func (core *Core) SetDiag(out io.Writer) {
	core.diag = out
}

// InstCount returns the number of instructions retired.
func (core *Core) InstCount() uint64 {
	return core.instCount
}

// Step executes one instruction. Returns false when the run should halt.
func (core *Core) Step() bool {
	pc := core.regs.PC()
	if pc&3 != 0 {
		tr := trap.Misaligned(pc)
		tr.PC = pc
		core.report(tr)
		return false
	}

	raw, err := core.mem.ReadWord(pc)
	if err != nil {
		core.report(core.locate(err, pc))
		return false
	}
	inst := decode.Decode(raw)

	if core.trace != nil {
		core.writeTrace(pc, inst)
	}

	err = core.execute(&stepInfo{inst: inst, pc: pc})
	if err == nil {
		core.instCount++
		return true
	}

	tr := core.locate(err, pc)
	if tr.Cause == trap.EnvironmentCall {
		cont, serr := core.sys.Call(core.regs, core.mem)
		// Resume past the ECALL whatever the handler decided.
		core.regs.SetPC(tr.PC + 4)
		if serr != nil {
			core.report(core.locate(serr, pc))
			return false
		}
		return cont
	}
	core.report(tr)
	return false
}

// Run steps until the guest exits or a trap halts the machine.
func (core *Core) Run() {
	for core.Step() {
	}
}

// Memory raises traps with PC zero; substitute the PC of the
// instruction being stepped.
func (core *Core) locate(err error, pc uint32) *trap.Trap {
	var tr *trap.Trap
	if !errors.As(err, &tr) {
		tr = &trap.Trap{Cause: trap.IllegalInstruction, PC: pc}
	}
	if tr.PC == 0 {
		tr.PC = pc
	}
	return tr
}

// Write the unhandled trap diagnostic block.
func (core *Core) report(tr *trap.Trap) {
	var str strings.Builder
	str.WriteString("\n=== CPU TRAP ===\n")
	str.WriteString("PC:       0x")
	hex.FormatWord(&str, tr.PC)
	str.WriteString("\nCause:    ")
	str.WriteString(strconv.Itoa(int(tr.Cause)))
	str.WriteString(" (")
	str.WriteString(tr.Cause.String())
	str.WriteString(")\nAddress:  ")
	if tr.HasAddr {
		str.WriteString("0x")
		hex.FormatWord(&str, tr.Addr)
	} else {
		str.WriteString("-")
	}
	str.WriteString("\nInst:     0x")
	hex.FormatWord(&str, tr.Inst)
	str.WriteString("\nExecuted: ")
	str.WriteString(strconv.FormatUint(core.instCount, 10))
	str.WriteString("\n")
	_, _ = core.diag.Write([]byte(str.String()))
}

// One trace record per instruction, before it executes.
func (core *Core) writeTrace(pc uint32, inst decode.Instruction) {
	var str strings.Builder
	str.WriteString("PC=0x")
	hex.FormatWord(&str, pc)
	str.WriteString(" INST=0x")
	hex.FormatWord(&str, inst.Raw)
	str.WriteString(" rd=")
	str.WriteString(strconv.Itoa(int(inst.Rd)))
	str.WriteString(" rs1=")
	str.WriteString(strconv.Itoa(int(inst.Rs1)))
	str.WriteString(" rs2=")
	str.WriteString(strconv.Itoa(int(inst.Rs2)))
	str.WriteString(" imm=")
	str.WriteString(strconv.Itoa(int(inst.Imm)))
	str.WriteString("\n")
	_, _ = core.trace.Write([]byte(str.String()))
}

var traceFile *os.File

// Register the TRACEFILE configuration keyword.
func init() {
	config.RegisterFile("TRACEFILE", createTrace)
}

func createTrace(fileName string) error {
	if traceFile != nil {
		return errors.New("can't have more than one trace file, previous: " + traceFile.Name())
	}
	file, err := os.Create(fileName)
	if err != nil {
		return errors.New("unable to create trace file: " + fileName)
	}
	traceFile = file
	return nil
}
