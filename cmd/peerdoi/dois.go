package main

import (
	"github.com/spf13/cobra"
)

var doisCmd = &cobra.Command{
	Use:   "dois",
	Short: "Manage the pool of pre-registered DOIs",
	Long: `Commands for the DOI database, the pool of pre-registered DOIs that
depositions draw from.

DOIs are registered with Crossref out of band and added to the pool here;
generating a deposition then claims one free DOI per review and author
reply.`,
}

func init() {
	rootCmd.AddCommand(doisCmd)
}
