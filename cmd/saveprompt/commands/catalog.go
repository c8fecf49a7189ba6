package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCatalogCmd creates the catalog command
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the resolved prompt strings",
		Long:  "Print every prompt string after layering SAVEPROMPT_CATALOG_PATH over the built-in catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Locale: %s\n", e.catalog.Locale)
			for _, k := range e.catalog.Keys() {
				fmt.Fprintf(out, "  %s: %s\n", k, e.catalog.String(k))
			}
			return nil
		},
	}

	return cmd
}
