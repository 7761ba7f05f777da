package main

import (
	"github.com/spf13/cobra"
)

var crossrefCmd = &cobra.Command{
	Use:   "crossref",
	Short: "Work with Crossref peer review depositions",
	Long: `Commands for working with single Crossref deposition files.

Generate a deposition for one MECA archive, verify a deposition against
the platform hosting the reviews, or send one to the Crossref API. The
batch pipeline does all three in one go; these commands are for inspecting
and debugging individual depositions.`,
}

func init() {
	rootCmd.AddCommand(crossrefCmd)
}
