package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"novavm/internal/logger"
	"novavm/internal/runner"
	"novavm/internal/samples"
	"novavm/pkg/color"
)

// Main entry point for the Nova virtual machine.
func main() {
	options := runner.Runner{}

	flag.BoolVar(&options.Help, "h", false, "Show help")
	flag.BoolVar(&options.Verbose, "v", false, "Verbose mode")
	flag.BoolVar(&options.NoColor, "n", false, "No color")
	flag.BoolVar(&options.Disassemble, "d", false, "Disassemble the program instead of running it")
	flag.BoolVar(&options.Trace, "t", false, "Trace every executed instruction (needs -v)")
	flag.StringVar(&options.ConfigFile, "c", "", "Path to nova.toml (searched upward from the working directory by default)")
	flag.IntVar(&options.MaxSteps, "s", 0, "Maximum number of executed instructions (0 = no limit)")
	flag.StringVar(&options.DumpFile, "dump", "", "Write a CBOR crash dump to this file on fault")
	flag.StringVar(&options.Sample, "sample", "", "Run a built-in sample ("+strings.Join(samples.Names(), ", ")+")")
	flag.StringVar(&options.OutputFile, "o", "", "Write the program image to this file instead of running it")

	flag.Parse()
	args := flag.Args()

	logger.Init(options.Verbose, options.NoColor)
	if options.Help {
		fmt.Printf("Usage: %s [options] <image>\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	if options.NoColor {
		color.EnableColor(false)
	}

	if len(args) == 0 && options.Sample == "" {
		log.Fatal("No program image provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
	}
	if len(args) > 0 {
		options.ProgramFile = args[0]
	}

	if err := options.Run(); err != nil {
		log.Fatal("Execution failed", "error", err)
	}
}
