package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moby/untar/pkg/archive"
)

// usageHint is printed when no archive is given.
const usageHint = "Enter tar file"

func newUntarCommand(stdout io.Writer) *cobra.Command {
	opts := newUntarOptions()

	cmd := &cobra.Command{
		Use:           "untar [OPTIONS] ARCHIVE",
		Short:         "Extract files and directories from a ustar archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_, err := fmt.Fprintln(stdout, usageHint)
				return err
			}
			return runUntar(cmd.Context(), opts, args[0])
		},
	}
	cmd.SetOut(stdout)
	opts.installFlags(cmd.Flags())

	return cmd
}

func runUntar(ctx context.Context, opts *untarOptions, archivePath string) error {
	if err := opts.configureLogging(); err != nil {
		return err
	}
	extractOpts, err := opts.extractOptions()
	if err != nil {
		return err
	}
	root, err := opts.destinationRoot()
	if err != nil {
		return err
	}
	return archive.ExtractAll(ctx, archivePath, root, extractOpts)
}

func initLogging(stderr io.Writer) {
	logrus.SetOutput(stderr)
}

func main() {
	initLogging(os.Stderr)

	cmd := newUntarCommand(os.Stdout)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
