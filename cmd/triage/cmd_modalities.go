package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/physio-triage-server/internal/domain"
)

var modalitiesFlags struct {
	outputFormat string
}

var modalitiesCmd = &cobra.Command{
	Use:   "modalities",
	Short: "List the treatment modalities that receive a gating decision",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalogue := domain.ModalityCatalogue()
		if modalitiesFlags.outputFormat != "table" {
			return writeOutput(cmd.OutOrStdout(), catalogue, modalitiesFlags.outputFormat)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MODALITY\tFAMILY\tNAME")
		for _, m := range catalogue {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Modality, m.Family, m.DisplayName)
		}
		return tw.Flush()
	},
}

func init() {
	modalitiesCmd.Flags().StringVarP(&modalitiesFlags.outputFormat, "output", "o", "table", "Output format: table, json or yaml")
}
