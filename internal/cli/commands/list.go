package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all table instances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			instances, err := cmdCtx.Host.ListInstances(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Title", "Template", "Filter", "Columns"})
			for _, inst := range instances {
				cols := cmdCtx.Engine.Columns(&inst)
				t.AppendRow(table.Row{inst.Name, inst.Title, inst.SourceTemplate, inst.Filter, len(cols)})
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "(%d instances)\n", len(instances))
			return nil
		},
	}
}
