/*
 * RV32 - Host console for the guest standard streams
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

package console

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Console owns the host ends of the guest standard streams for the
// duration of a run. When stdin is a terminal it is switched to raw
// mode so the guest sees bytes as they are typed; Close restores the
// terminal. Output expands LF to CRLF while raw mode is active.
type Console struct {
	in    *os.File
	out   *os.File
	raw   bool
	saved *term.State
}

// New attaches to the process standard streams.
func New() *Console {
	return Open(os.Stdin, os.Stdout)
}

// Open attaches to the given streams.
func Open(in *os.File, out *os.File) *Console {
	con := &Console{in: in, out: out}
	if term.IsTerminal(int(in.Fd())) {
		saved, err := term.MakeRaw(int(in.Fd()))
		if err == nil {
			con.raw = true
			con.saved = saved
		}
	}
	return con
}

// Close restores the terminal state.
func (con *Console) Close() {
	if con.saved != nil {
		_ = term.Restore(int(con.in.Fd()), con.saved)
		con.saved = nil
		con.raw = false
	}
}

// ReadByte blocks for one byte of input. Returns false at end of stream.
func (con *Console) ReadByte() (uint8, bool) {
	var buf [1]byte
	for {
		n, err := con.in.Read(buf[:])
		if n == 1 {
			return buf[0], true
		}
		if err != nil {
			return 0, false
		}
	}
}

// Avail reports whether a byte can be read without blocking.
func (con *Console) Avail() bool {
	fds := []unix.PollFd{{Fd: int32(con.in.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil || n == 0 {
		return false
	}
	return fds[0].Revents&(unix.POLLIN|unix.POLLHUP) != 0
}

func (con *Console) Write(p []byte) (int, error) {
	if !con.raw {
		return con.out.Write(p)
	}
	// Raw mode disables the kernel's LF to CRLF translation.
	expanded := make([]byte, 0, len(p)+8)
	for _, by := range p {
		if by == '\n' {
			expanded = append(expanded, '\r')
		}
		expanded = append(expanded, by)
	}
	if _, err := con.out.Write(expanded); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush satisfies the device writer contract. The streams are not
// buffered on the host side.
func (con *Console) Flush() error {
	return nil
}
