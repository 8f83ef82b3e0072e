package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tallaby/backend/internal/domain"
)

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Extract one product page and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service := newProductService(cfg)

		product, err := service.FetchProduct(cmd.Context(), &domain.ExtractionRequest{URL: args[0]})
		if err != nil {
			return eris.Wrapf(err, "extract %s", args[0])
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(product)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
