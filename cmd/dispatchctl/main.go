// Command dispatchctl is a small read-only operator CLI for a running
// dispatcher: it talks to the northbound HTTP contract only and has no
// access to the Registry.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

func main() {
	var (
		addr    = flag.String("addr", "http://localhost:5000", "dispatcher base address")
		jsonOut = flag.Bool("json", false, "print the raw JSON report instead of a table")
		noColor = flag.Bool("no-color", false, "disable color output")
	)
	flag.SetInterspersed(false)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dispatchctl [flags] <command>\n\nCommands:\n  status   fetch /queue-status and print the backend pool\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "status":
		err = runStatus(*addr, *jsonOut, *noColor)
	default:
		fmt.Fprintf(os.Stderr, "dispatchctl: unknown command %q\n", args[0])
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "dispatchctl: %v\n", err)
		os.Exit(1)
	}
}
