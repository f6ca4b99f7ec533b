package decode

/*
 * RV32 - Instruction decode test cases
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

import "testing"

// Field extraction against words from a compiled guest.
func TestDecodeFields(t *testing.T) {
	tests := []struct {
		raw    uint32
		opcode uint32
		rd     uint32
		rs1    uint32
		rs2    uint32
		funct3 uint32
	}{
		{0x10000537, OpLui, 10, 0, 0, 0},    // lui a0,0x10000
		{0x00050593, OpImm, 11, 10, 0, 0},   // addi a1,a0,0
		{0x00100613, OpImm, 12, 0, 1, 0},    // addi a2,zero,1
		{0x04000893, OpImm, 17, 0, 0, 0},    // addi a7,zero,64
		{0x00000073, OpSystem, 0, 0, 0, 0},  // ecall
		{0x00a62223, OpStore, 4, 12, 10, 2}, // sw a0,4(a2)
		{0x00b505b3, OpReg, 11, 10, 11, 0},  // add a1,a0,a1
	}
	for _, test := range tests {
		inst := Decode(test.raw)
		if inst.Raw != test.raw {
			t.Errorf("Raw not kept got: %08x expected: %08x", inst.Raw, test.raw)
		}
		if inst.Opcode != test.opcode {
			t.Errorf("Opcode of %08x not correct got: %02x expected: %02x", test.raw, inst.Opcode, test.opcode)
		}
		if inst.Rd != test.rd {
			t.Errorf("Rd of %08x not correct got: %d expected: %d", test.raw, inst.Rd, test.rd)
		}
		if inst.Rs1 != test.rs1 {
			t.Errorf("Rs1 of %08x not correct got: %d expected: %d", test.raw, inst.Rs1, test.rs1)
		}
		if inst.Rs2 != test.rs2 {
			t.Errorf("Rs2 of %08x not correct got: %d expected: %d", test.raw, inst.Rs2, test.rs2)
		}
		if inst.Funct3 != test.funct3 {
			t.Errorf("Funct3 of %08x not correct got: %d expected: %d", test.raw, inst.Funct3, test.funct3)
		}
	}
}

// Immediate extraction and sign extension for every format.
func TestDecodeImmediate(t *testing.T) {
	tests := []struct {
		raw uint32
		imm int32
	}{
		{0x10000537, 0x10000000}, // lui a0,0x10000: U
		{0x00100613, 1},          // addi a2,zero,1: I
		{0x04000893, 64},         // addi a7,zero,64: I
		{0xfff00513, -1},         // addi a0,zero,-1: I
		{0x00a62223, 4},          // sw a0,4(a2): S
		{0xfea62e23, -4},         // sw a0,-4(a2): S
		{0x00c5d463, 8},          // bge a1,a2,+8: B
		{0xfeb54ce3, -8},         // blt a0,a1,-8: B
		{0x010000ef, 16},         // jal ra,+16: J
		{0xff1ff06f, -16},        // jal zero,-16: J
		{0x00b50533, 0},          // add a0,a0,a1: R has no immediate
	}
	for _, test := range tests {
		inst := Decode(test.raw)
		if inst.Imm != test.imm {
			t.Errorf("Immediate of %08x not correct got: %d expected: %d", test.raw, inst.Imm, test.imm)
		}
	}
}

func TestEnvironmentCall(t *testing.T) {
	if !Decode(0x00000073).IsEnvironmentCall() {
		t.Errorf("ECALL not recognized")
	}
	// CSR encodings share the SYSTEM opcode but are not environment calls.
	if Decode(0x30002573).IsEnvironmentCall() {
		t.Errorf("CSR encoding recognized as environment call")
	}
	if Decode(0x00000013).IsEnvironmentCall() {
		t.Errorf("NOP recognized as environment call")
	}
}
