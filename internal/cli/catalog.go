package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/yojana/internal/catalog"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/spf13/cobra"
)

var catalogJSON bool

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog [category]",
	Short: "List the built-in fallback schemes",
	Long: `Catalog prints the schemes used when no completion service is available.
Without an argument every category is listed.

Example:
  yojana catalog
  yojana catalog farmer --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "print JSON")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	categories := model.Categories
	if len(args) == 1 {
		c := model.ParseCategory(args[0])
		if !c.Known() {
			return fmt.Errorf("unknown category %q (expected student, farmer or women)", args[0])
		}
		categories = []model.Category{c}
	}

	out := cmd.OutOrStdout()
	if catalogJSON {
		listing := make(map[model.Category][]model.SchemeRecord, len(categories))
		for _, c := range categories {
			listing[c] = catalog.Lookup(c)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	for _, c := range categories {
		fmt.Fprintf(out, "── %s ──\n", c.Label())
		for i, s := range catalog.Lookup(c) {
			fmt.Fprintf(out, "%d. %s: %s\n   %s\n   %s\n", i+1, s.Name, s.Benefit, s.Eligibility, s.ApplicationURL)
		}
		fmt.Fprintln(out)
	}
	return nil
}
