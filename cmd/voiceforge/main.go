package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var version = "0.1.0-dev"

const usage = `usage: voiceforge <command> [flags]

commands:
  analyze   estimate the emotion of text
  chunk     print the segments text would be split into
  merge     merge WAV files into one
  synth     synthesize text into an audio file
  validate  check a configuration file
  version   print the version`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	_ = godotenv.Load()

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(args, os.Stdin, os.Stdout)
	case "chunk":
		err = runChunk(args, os.Stdin, os.Stdout)
	case "merge":
		err = runMerge(args, os.Stdout)
	case "synth":
		err = runSynth(args, os.Stdin, os.Stdout)
	case "validate":
		err = runValidate(args, os.Stdout)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
