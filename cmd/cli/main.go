package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	flags := &commonFlags{}
	rootCmd := &cobra.Command{
		Use:          "certverify",
		Short:        "Certificate verification CLI",
		Long:         "Extracts claims from certificate text or images and verifies them against trusted issuer sites.",
		SilenceUsage: true,
	}
	flags.register(rootCmd)

	rootCmd.AddCommand(newTextCmd(flags))
	rootCmd.AddCommand(newImageCmd(flags))
	rootCmd.AddCommand(newBatchCmd(flags))
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "certverify:", err)
		stop()
		os.Exit(1)
	}
}
