/*
 * RV32 - Serial console device
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

package uart

import (
	"io"

	config "github.com/rcornwell/RV32/config/configparser"
	"github.com/rcornwell/RV32/emu/memory"
)

// Data register address on the default platform.
const DefaultAddr = 0x10000000

// Writer is the host sink for console output.
type Writer interface {
	io.Writer
	Flush() error
}

// Uart is the platform serial console. A byte stored to the data
// register is forwarded to the host console and flushed.
type Uart struct {
	addr uint32
	out  Writer
}

var configuredAddr uint32 = DefaultAddr

// Register the CONSOLE configuration keyword.
func init() {
	config.RegisterModel("CONSOLE", create)
}

// Handle a CONSOLE configuration line: CONSOLE <addr>.
func create(addr uint32, _ []config.Option) error {
	configuredAddr = addr
	return nil
}

// Attach registers the console device with the memory subsystem.
func Attach(mem *memory.Memory, out Writer) *Uart {
	device := &Uart{addr: configuredAddr, out: out}
	mem.RegisterMMIO(device.addr, device.writeByte)
	return device
}

// Addr returns the data register address in use.
func (device *Uart) Addr() uint32 {
	return device.addr
}

func (device *Uart) writeByte(_ uint32, value uint8) {
	_, _ = device.out.Write([]byte{value})
	_ = device.out.Flush()
}
