/*
 * RV32 - Main process.
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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	getopt "github.com/pborman/getopt/v2"
	config "github.com/rcornwell/RV32/config/configparser"
	cpu "github.com/rcornwell/RV32/emu/cpu"
	loader "github.com/rcornwell/RV32/emu/loader"
	memory "github.com/rcornwell/RV32/emu/memory"
	state "github.com/rcornwell/RV32/emu/state"
	syscall "github.com/rcornwell/RV32/emu/syscall"
	uart "github.com/rcornwell/RV32/emu/uart"
	console "github.com/rcornwell/RV32/util/console"
	logger "github.com/rcornwell/RV32/util/logger"
)

var Logger *slog.Logger

func main() {
	os.Exit(run())
}

func run() int {
	optTrace := getopt.BoolLong("trace", 't', "Enable instruction trace")
	optTraceFile := getopt.StringLong("trace-file", 0, "trace.log", "Instruction trace file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optConfig := getopt.StringLong("config", 'c', "", "Platform configuration file")
	optVersion := getopt.BoolLong("version", 'v', "Show version")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("program.elf")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		return 0
	}
	if *optVersion {
		fmt.Println("rv32im-emulator 1.0 (RV32IM user-mode)")
		return 0
	}

	var logFile *os.File
	if *optLogFile != "" {
		logFile, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(Logger)

	args := getopt.Args()
	if len(args) != 1 {
		getopt.Usage()
		return 1
	}

	if *optConfig != "" {
		if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
			Logger.Error("Configuration file " + *optConfig + " can't be found")
			return 1
		}
		if err := config.LoadConfigFile(*optConfig); err != nil {
			Logger.Error(err.Error())
			return 1
		}
	}

	regions := memory.Configured()
	if len(regions) == 0 {
		regions = memory.DefaultRegions()
	}
	mem, err := memory.New(regions)
	if err != nil {
		Logger.Error(err.Error())
		return 1
	}

	con := console.New()
	defer con.Close()
	uart.Attach(mem, con)

	regs := state.New()
	imageEnd, err := loader.Load(args[0], mem, regs)
	if err != nil {
		Logger.Error(err.Error())
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	Logger.Info("RV32 loaded " + args[0])

	sys := syscall.New(con)
	sys.SetImageEnd(imageEnd)

	core := cpu.New(regs, mem, sys)
	if *optTrace {
		file, err := os.Create(*optTraceFile)
		if err != nil {
			Logger.Error("unable to create trace file: " + *optTraceFile)
			return 1
		}
		defer file.Close()
		core.SetTrace(file)
	}

	start := time.Now()
	core.Run()
	seconds := time.Since(start).Seconds()
	con.Close()

	insts := core.InstCount()
	fmt.Fprintf(os.Stderr, "\n--- Emulator stats ---\n")
	fmt.Fprintf(os.Stderr, "Instructions: %d\n", insts)
	fmt.Fprintf(os.Stderr, "Time: %g s\n", seconds)
	if seconds > 0 {
		fmt.Fprintf(os.Stderr, "IPS: %g\n", float64(insts)/seconds)
	}
	return 0
}
