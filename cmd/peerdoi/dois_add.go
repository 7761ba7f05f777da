package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// DoisAddResult is the response for the dois add command.
type DoisAddResult struct {
	DBFile string `json:"db_file"`
	Added  int    `json:"added"`
}

func init() {
	doisCmd.AddCommand(doisAddCmd)
}

var doisAddCmd = &cobra.Command{
	Use:   "add <input-file>",
	Short: "Add DOIs to the DOI database",
	Long: `Add DOIs to the DOI database.

Each non-empty line of the input file is treated as a DOI and added to the
database. Pass - to read the DOIs from stdin. A DOI that is already in the
database fails the whole command and nothing is added.

Example:
  peerdoi dois add registered-dois.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runDoisAdd,
}

func runDoisAdd(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	dois, err := readDOIs(args[0])
	if err != nil {
		exitWithError(ExitError, "reading DOIs: %v", err)
	}

	pool := mustOpenPool(cfg.DOIDBFile)
	defer pool.Close()

	if err := pool.Add(dois); err != nil {
		exitWithError(ExitError, "adding DOIs: %v", err)
	}

	result := DoisAddResult{DBFile: cfg.DOIDBFile, Added: len(dois)}
	if humanOutput {
		fmt.Printf("Added %s to %q\n", plural(result.Added, "DOI"), result.DBFile)
	} else {
		outputJSON(result)
	}

	return nil
}

// readDOIs reads one DOI per line from the given file, or from stdin when
// the path is "-". Empty lines are skipped.
func readDOIs(path string) ([]string, error) {
	var reader io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		reader = file
	}

	var dois []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			dois = append(dois, line)
		}
	}
	return dois, scanner.Err()
}
