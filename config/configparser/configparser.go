package configparser

/*
 * RV32 - Platform configuration file parser
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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> := <model> <whitespace> <address> *(<whitespace> <option>) |
 *            <filekey> <whitespace> <quoteopt>
 * <model> := <string>
 * <address> ::= <hexnumber> | <number><K|M> | <number>
 * <option> ::= <string> | <string> '=' <quoteopt>
 * <quoteopt> ::= <string> | '"' <string> '"'
 *
 * Fields are split on whitespace before quotes are stripped, so a quoted
 * value cannot contain whitespace.
 *
 * Models and file keywords are registered by the packages that consume
 * them, from init functions.
 */

// Option given after the address field of a configuration line.
type Option struct {
	Name     string // Name of option.
	EqualOpt string // Value of string after =.
}

// Model creation list.
type modelDef struct {
	create func(uint32, []Option) error
}

var models = map[string]modelDef{}
var files = map[string]func(string) error{}

var lineNumber int

// RegisterModel should be called from init functions.
func RegisterModel(name string, create func(uint32, []Option) error) {
	models[strings.ToUpper(name)] = modelDef{create: create}
}

// RegisterFile registers a keyword taking a single file name.
func RegisterFile(name string, create func(string) error) {
	files[strings.ToUpper(name)] = create
}

// ParseNumber converts a decimal, hex (0x prefix) or K/M suffixed value.
func ParseNumber(value string) (uint32, error) {
	mult := uint64(1)
	v := strings.ToUpper(value)
	switch {
	case strings.HasSuffix(v, "K"):
		mult = 1024
		v = strings.TrimSuffix(v, "K")
	case strings.HasSuffix(v, "M"):
		mult = 1024 * 1024
		v = strings.TrimSuffix(v, "M")
	}
	var num uint64
	var err error
	if strings.HasPrefix(v, "0X") {
		num, err = strconv.ParseUint(v[2:], 16, 64)
	} else {
		num, err = strconv.ParseUint(v, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", value)
	}
	num *= mult
	if num > 0xffffffff {
		return 0, fmt.Errorf("number too large: %s", value)
	}
	return uint32(num), nil
}

// LoadConfigFile reads and processes a configuration file.
func LoadConfigFile(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()
	return LoadConfig(file)
}

// LoadConfig processes configuration lines from a reader.
func LoadConfig(rdr io.Reader) error {
	scanner := bufio.NewScanner(rdr)
	lineNumber = 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		keyword := strings.ToUpper(fields[0])

		if create, ok := files[keyword]; ok {
			if len(fields) != 2 {
				return lineError(keyword + " takes one file name")
			}
			if err := create(strings.Trim(fields[1], `"`)); err != nil {
				return lineError(err.Error())
			}
			continue
		}

		model, ok := models[keyword]
		if !ok {
			return lineError("unknown keyword: " + fields[0])
		}
		if len(fields) < 2 {
			return lineError(keyword + " needs an address")
		}
		addr, err := ParseNumber(fields[1])
		if err != nil {
			return lineError(err.Error())
		}
		var options []Option
		for _, field := range fields[2:] {
			name, value, _ := strings.Cut(field, "=")
			options = append(options, Option{
				Name:     strings.ToUpper(name),
				EqualOpt: strings.Trim(value, `"`),
			})
		}
		if err := model.create(addr, options); err != nil {
			return lineError(err.Error())
		}
	}
	return scanner.Err()
}

func lineError(msg string) error {
	return fmt.Errorf("line %d: %s", lineNumber, msg)
}
