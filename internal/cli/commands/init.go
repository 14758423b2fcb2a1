package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frameless-media/datatables/internal/state"
)

const defaultConfigFile = "datatables.yaml"

const configTemplate = `# datatables configuration
database: .datatables/data.db
stubs_dir: stubs

# Global formatter settings, readable from every stub via settings.get(...).
settings:
  dateFormat: "2006-01-02 15:04"
  numberDecimals: 2
  checkboxYesLabel: "Yes"
  checkboxNoLabel: "No"
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var withDemo bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a datatables project in the current directory",
		Long: `Create the config file, the stubs directory and the repository database.

With --demo, a small product catalog and a matching table instance are
seeded so there is something to render immediately.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, withDemo)
		},
	}
	cmd.Flags().BoolVar(&withDemo, "demo", false, "seed demo data")
	return cmd
}

func runInit(cmd *cobra.Command, withDemo bool) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(defaultConfigFile); os.IsNotExist(err) {
		if err := os.WriteFile(defaultConfigFile, []byte(configTemplate), 0o644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n", defaultConfigFile)
	} else {
		fmt.Fprintf(out, "%s already exists, leaving it alone\n", defaultConfigFile)
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := os.MkdirAll(cmdCtx.Config.StubsDir, 0o755); err != nil {
		return fmt.Errorf("create stubs directory: %w", err)
	}
	fmt.Fprintf(out, "Stubs directory: %s\n", cmdCtx.Config.StubsDir)
	fmt.Fprintf(out, "Database: %s\n", cmdCtx.Config.Database)

	if withDemo {
		ctx := cmd.Context()
		if err := state.SeedDemo(ctx, cmdCtx.SQL); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		instances, err := cmdCtx.Host.ListInstances(ctx)
		if err != nil {
			return err
		}
		for _, inst := range instances {
			if err := cmdCtx.Engine.SyncInstance(&inst); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, "Seeded demo data and generated formatter stubs")
	}
	return nil
}
