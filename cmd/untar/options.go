package main

import (
	"fmt"
	"os"

	"github.com/containerd/log"
	"github.com/spf13/pflag"

	"github.com/moby/untar/pkg/archive"
	"github.com/moby/untar/pkg/archive/compression"
)

const autoCompression = "auto"

type untarOptions struct {
	destination string
	compression string
	sniff       bool

	debug     bool
	logLevel  string
	logFormat string
}

func newUntarOptions() *untarOptions {
	return &untarOptions{}
}

// installFlags adds flags for the untar options on the FlagSet
func (o *untarOptions) installFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&o.destination, "directory", "C", "", "Extract into this directory instead of the current one")
	flags.StringVar(&o.compression, "compression", autoCompression, `Decompression to apply ("auto", "none", "gzip", "bzip2", "xz", "zstd")`)
	flags.BoolVar(&o.sniff, "sniff", false, "Detect the compression from the archive content when the file extension does not name one")

	flags.BoolVarP(&o.debug, "debug", "D", false, "Enable debug mode")
	flags.StringVarP(&o.logLevel, "log-level", "l", "info", `Set the logging level ("debug", "info", "warn", "error", "fatal")`)
	flags.StringVar(&o.logFormat, "log-format", string(log.TextFormat), fmt.Sprintf(`Set the logging format ("%s"|"%s")`, log.TextFormat, log.JSONFormat))
}

// extractOptions validates the flag values and converts them to the
// options of archive.ExtractAll.
func (o *untarOptions) extractOptions() (*archive.ExtractOptions, error) {
	opts := &archive.ExtractOptions{Sniff: o.sniff}
	if o.compression != "" && o.compression != autoCompression {
		c, err := compression.ParseCompression(o.compression)
		if err != nil {
			return nil, err
		}
		opts.Compression = &c
	}
	return opts, nil
}

// destinationRoot returns the directory to extract into, which defaults to
// the current working directory.
func (o *untarOptions) destinationRoot() (string, error) {
	if o.destination != "" {
		return o.destination, nil
	}
	return os.Getwd()
}

// configureLogging applies the logging flags. --debug takes precedence over
// --log-level.
func (o *untarOptions) configureLogging() error {
	level := o.logLevel
	if o.debug {
		level = "debug"
	}
	if level != "" {
		if err := log.SetLevel(level); err != nil {
			return fmt.Errorf("unable to parse logging level: %s", level)
		}
	}
	switch format := log.OutputFormat(o.logFormat); format {
	case log.TextFormat, log.JSONFormat:
		return log.SetFormat(format)
	default:
		return fmt.Errorf("unknown log format: %s", o.logFormat)
	}
}
