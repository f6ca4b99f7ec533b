package cpu

/*
 * RV32 - RV32IM instruction semantics
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
	"github.com/rcornwell/RV32/emu/decode"
	"github.com/rcornwell/RV32/emu/trap"
)

// One instruction in flight. Branches and jumps overwrite nextPC; every
// other instruction falls through to pc + 4. Execute writes nextPC to
// the state exactly once, on success.
type stepInfo struct {
	inst   decode.Instruction
	pc     uint32
	nextPC uint32
}

// Execute one decoded instruction. All 32 bit two's complement,
// unsigned wraparound.
func (core *Core) execute(step *stepInfo) error {
	step.nextPC = step.pc + 4

	var err error
	switch step.inst.Opcode {
	case decode.OpLui:
		core.opLUI(step)
	case decode.OpAuipc:
		core.opAUIPC(step)
	case decode.OpJal:
		core.opJAL(step)
	case decode.OpJalr:
		core.opJALR(step)
	case decode.OpBranch:
		err = core.opBranch(step)
	case decode.OpLoad:
		err = core.opLoad(step)
	case decode.OpStore:
		err = core.opStore(step)
	case decode.OpImm:
		err = core.opImm(step)
	case decode.OpReg:
		err = core.opReg(step)
	case decode.OpSystem:
		err = core.opSystem(step)
	default:
		err = trap.Illegal(step.pc, step.inst.Raw)
	}
	if err != nil {
		return err
	}
	core.regs.SetPC(step.nextPC)
	return nil
}

// Load upper immediate.
func (core *Core) opLUI(step *stepInfo) {
	core.regs.SetReg(step.inst.Rd, uint32(step.inst.Imm))
}

// Add upper immediate to PC.
func (core *Core) opAUIPC(step *stepInfo) {
	core.regs.SetReg(step.inst.Rd, step.pc+uint32(step.inst.Imm))
}

// Jump and link.
func (core *Core) opJAL(step *stepInfo) {
	core.regs.SetReg(step.inst.Rd, step.pc+4)
	step.nextPC = step.pc + uint32(step.inst.Imm)
}

// Jump and link register. The target is computed before the link
// register is written so rd = rs1 is well defined.
func (core *Core) opJALR(step *stepInfo) {
	target := (core.regs.Reg(step.inst.Rs1) + uint32(step.inst.Imm)) &^ 1
	core.regs.SetReg(step.inst.Rd, step.pc+4)
	step.nextPC = target
}

// Conditional branches.
func (core *Core) opBranch(step *stepInfo) error {
	src1 := core.regs.Reg(step.inst.Rs1)
	src2 := core.regs.Reg(step.inst.Rs2)

	var taken bool
	switch step.inst.Funct3 {
	case 0: // BEQ
		taken = src1 == src2
	case 1: // BNE
		taken = src1 != src2
	case 4: // BLT
		taken = int32(src1) < int32(src2)
	case 5: // BGE
		taken = int32(src1) >= int32(src2)
	case 6: // BLTU
		taken = src1 < src2
	case 7: // BGEU
		taken = src1 >= src2
	default:
		return trap.Illegal(step.pc, step.inst.Raw)
	}
	if taken {
		step.nextPC = step.pc + uint32(step.inst.Imm)
	}
	return nil
}

// Loads. Memory faults propagate to the front end.
func (core *Core) opLoad(step *stepInfo) error {
	addr := core.regs.Reg(step.inst.Rs1) + uint32(step.inst.Imm)

	var value uint32
	switch step.inst.Funct3 {
	case 0: // LB
		by, err := core.mem.ReadByte(addr)
		if err != nil {
			return err
		}
		value = uint32(int32(int8(by)))
	case 1: // LH
		half, err := core.mem.ReadHalf(addr)
		if err != nil {
			return err
		}
		value = uint32(int32(int16(half)))
	case 2: // LW
		word, err := core.mem.ReadWord(addr)
		if err != nil {
			return err
		}
		value = word
	case 4: // LBU
		by, err := core.mem.ReadByte(addr)
		if err != nil {
			return err
		}
		value = uint32(by)
	case 5: // LHU
		half, err := core.mem.ReadHalf(addr)
		if err != nil {
			return err
		}
		value = half
	default:
		return trap.Illegal(step.pc, step.inst.Raw)
	}
	core.regs.SetReg(step.inst.Rd, value)
	return nil
}

// Stores.
func (core *Core) opStore(step *stepInfo) error {
	addr := core.regs.Reg(step.inst.Rs1) + uint32(step.inst.Imm)
	value := core.regs.Reg(step.inst.Rs2)

	switch step.inst.Funct3 {
	case 0: // SB
		return core.mem.WriteByte(addr, uint8(value))
	case 1: // SH
		return core.mem.WriteHalf(addr, value)
	case 2: // SW
		return core.mem.WriteWord(addr, value)
	}
	return trap.Illegal(step.pc, step.inst.Raw)
}

// ALU with immediate. Shift amounts use the low 5 bits.
func (core *Core) opImm(step *stepInfo) error {
	src := core.regs.Reg(step.inst.Rs1)
	imm := uint32(step.inst.Imm)

	var result uint32
	switch step.inst.Funct3 {
	case 0: // ADDI
		result = src + imm
	case 1: // SLLI
		result = src << (imm & 31)
	case 2: // SLTI
		if int32(src) < step.inst.Imm {
			result = 1
		}
	case 3: // SLTIU, sign extended immediate compared unsigned
		if src < imm {
			result = 1
		}
	case 4: // XORI
		result = src ^ imm
	case 5: // SRLI/SRAI
		if step.inst.Funct7&0x20 != 0 {
			result = uint32(int32(src) >> (imm & 31))
		} else {
			result = src >> (imm & 31)
		}
	case 6: // ORI
		result = src | imm
	case 7: // ANDI
		result = src & imm
	}
	core.regs.SetReg(step.inst.Rd, result)
	return nil
}

// ALU register to register, including the M extension.
func (core *Core) opReg(step *stepInfo) error {
	src1 := core.regs.Reg(step.inst.Rs1)
	src2 := core.regs.Reg(step.inst.Rs2)

	if step.inst.Funct7 == 0x01 {
		core.regs.SetReg(step.inst.Rd, multiply(step.inst.Funct3, src1, src2))
		return nil
	}

	var result uint32
	switch step.inst.Funct3 {
	case 0: // ADD/SUB
		switch step.inst.Funct7 {
		case 0x00:
			result = src1 + src2
		case 0x20:
			result = src1 - src2
		default:
			return trap.Illegal(step.pc, step.inst.Raw)
		}
	case 1: // SLL
		if step.inst.Funct7 != 0 {
			return trap.Illegal(step.pc, step.inst.Raw)
		}
		result = src1 << (src2 & 31)
	case 2: // SLT
		if step.inst.Funct7 != 0 {
			return trap.Illegal(step.pc, step.inst.Raw)
		}
		if int32(src1) < int32(src2) {
			result = 1
		}
	case 3: // SLTU
		if step.inst.Funct7 != 0 {
			return trap.Illegal(step.pc, step.inst.Raw)
		}
		if src1 < src2 {
			result = 1
		}
	case 4: // XOR
		if step.inst.Funct7 != 0 {
			return trap.Illegal(step.pc, step.inst.Raw)
		}
		result = src1 ^ src2
	case 5: // SRL/SRA
		switch step.inst.Funct7 {
		case 0x00:
			result = src1 >> (src2 & 31)
		case 0x20:
			result = uint32(int32(src1) >> (src2 & 31))
		default:
			return trap.Illegal(step.pc, step.inst.Raw)
		}
	case 6: // OR
		if step.inst.Funct7 != 0 {
			return trap.Illegal(step.pc, step.inst.Raw)
		}
		result = src1 | src2
	case 7: // AND
		if step.inst.Funct7 != 0 {
			return trap.Illegal(step.pc, step.inst.Raw)
		}
		result = src1 & src2
	}
	core.regs.SetReg(step.inst.Rd, result)
	return nil
}

// RV32M multiply and divide. Division by zero and overflow follow the
// architected fixed results, never a fault.
func multiply(funct3 uint32, src1 uint32, src2 uint32) uint32 {
	switch funct3 {
	case 0: // MUL
		return src1 * src2
	case 1: // MULH
		return uint32(uint64(int64(int32(src1))*int64(int32(src2))) >> 32)
	case 2: // MULHSU
		return uint32(uint64(int64(int32(src1))*int64(src2)) >> 32)
	case 3: // MULHU
		return uint32((uint64(src1) * uint64(src2)) >> 32)
	case 4: // DIV
		if src2 == 0 {
			return 0xffffffff
		}
		if src1 == 0x80000000 && src2 == 0xffffffff {
			return 0x80000000
		}
		return uint32(int32(src1) / int32(src2))
	case 5: // DIVU
		if src2 == 0 {
			return 0xffffffff
		}
		return src1 / src2
	case 6: // REM
		if src2 == 0 {
			return src1
		}
		if src1 == 0x80000000 && src2 == 0xffffffff {
			return 0
		}
		return uint32(int32(src1) % int32(src2))
	case 7: // REMU
		if src2 == 0 {
			return src1
		}
		return src1 % src2
	}
	return 0
}

// SYSTEM. An environment call unwinds to the front end; every other
// SYSTEM encoding is illegal on this machine.
func (core *Core) opSystem(step *stepInfo) error {
	if step.inst.IsEnvironmentCall() {
		return trap.EnvCall(step.pc, step.inst.Raw)
	}
	return trap.Illegal(step.pc, step.inst.Raw)
}
