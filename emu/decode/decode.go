package decode

/*
 * RV32 - Instruction decode
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
   RV32 base instruction formats. All instructions are one 32 bit word.

    R format:
      +---------+-----+-----+--------+-----+---------+
      | funct7  | rs2 | rs1 | funct3 | rd  | opcode  |
      +---------+-----+-----+--------+-----+---------+

    I format:
      +---------------+-----+--------+-----+---------+
      |   imm[11:0]   | rs1 | funct3 | rd  | opcode  |
      +---------------+-----+--------+-----+---------+

    S format:  imm split around rs2/rs1.
    B format:  branch offset, bit scrambled, always even.
    U format:  imm[31:12] direct.
    J format:  jump offset, bit scrambled, always even.

   The immediate is sign extended to 32 bits for every format that has
   one. Decode is total; whether an encoding is legal is decided during
   execute from the opcode/funct3/funct7 combination.
*/

// Major opcodes of the RV32 base encoding.
const (
	OpLoad   = 0x03 // LB/LH/LW/LBU/LHU
	OpImm    = 0x13 // ALU with immediate
	OpAuipc  = 0x17 // Add upper immediate to PC
	OpStore  = 0x23 // SB/SH/SW
	OpReg    = 0x33 // ALU register, RV32M
	OpLui    = 0x37 // Load upper immediate
	OpBranch = 0x63 // Conditional branches
	OpJalr   = 0x67 // Jump and link register
	OpJal    = 0x6f // Jump and link
	OpSystem = 0x73 // ECALL and friends
)

// Instruction is one decoded 32 bit word. Immutable once produced.
type Instruction struct {
	Raw    uint32 // Original word.
	Opcode uint32 // Bits 6..0.
	Rd     uint32 // Destination register.
	Rs1    uint32 // First source register.
	Rs2    uint32 // Second source register.
	Funct3 uint32 // Minor opcode.
	Funct7 uint32 // Bits 31..25.
	Imm    int32  // Immediate, sign extended per format.
}

// Decode splits a raw instruction word into its fields.
func Decode(raw uint32) Instruction {
	inst := Instruction{
		Raw:    raw,
		Opcode: raw & 0x7f,
		Rd:     (raw >> 7) & 0x1f,
		Funct3: (raw >> 12) & 0x7,
		Rs1:    (raw >> 15) & 0x1f,
		Rs2:    (raw >> 20) & 0x1f,
		Funct7: (raw >> 25) & 0x7f,
	}

	switch inst.Opcode {
	case OpImm, OpLoad, OpJalr, OpSystem:
		inst.Imm = int32(raw) >> 20
	case OpStore:
		inst.Imm = (int32(raw)>>25)<<5 | int32((raw>>7)&0x1f)
	case OpBranch:
		imm := ((raw >> 31) & 0x1) << 12
		imm |= ((raw >> 7) & 0x1) << 11
		imm |= ((raw >> 25) & 0x3f) << 5
		imm |= ((raw >> 8) & 0xf) << 1
		inst.Imm = int32(imm<<19) >> 19
	case OpLui, OpAuipc:
		inst.Imm = int32(raw & 0xfffff000)
	case OpJal:
		imm := ((raw >> 31) & 0x1) << 20
		imm |= ((raw >> 12) & 0xff) << 12
		imm |= ((raw >> 20) & 0x1) << 11
		imm |= ((raw >> 21) & 0x3ff) << 1
		inst.Imm = int32(imm<<11) >> 11
	}
	return inst
}

// IsEnvironmentCall reports whether this is an ECALL style transition
// into the host ABI.
func (inst Instruction) IsEnvironmentCall() bool {
	return inst.Opcode == OpSystem && inst.Funct3 == 0
}
