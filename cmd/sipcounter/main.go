package main

import (
	"flag"
	"fmt"
	"os"

	"sipcounter/internal/app"
	"sipcounter/internal/config"
)

var (
	// version is meant to be overridden at build time via -ldflags.
	version = "dev"
)

func main() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintln(out, "Counts SIP messages per link, direction and message type, read from")
		fmt.Fprintln(out, "tshark fields output or a capture file, and exports them to Prometheus.")
		fmt.Fprintln(out)
		flag.PrintDefaults()
	}

	cfg := config.ParseFlags()
	if cfg.ShowHelp {
		flag.Usage()
		os.Exit(0)
	}

	os.Exit(app.Run(cfg, version))
}
