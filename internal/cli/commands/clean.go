package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/frameless-media/datatables/internal/column"
)

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clean [instance...]",
		Short: "Remove formatter stub directories",
		Long: `Remove the stub directories of the named instances. Without arguments,
remove directories left behind by deleted instances; --all removes every
stub directory. Customized stubs are deleted too, so use with care.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, args, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove all stub directories")
	return cmd
}

func runClean(cmd *cobra.Command, names []string, all bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	out := cmd.OutOrStdout()

	if all {
		if err := cmdCtx.Engine.Store().DeleteAll(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Removed all stub directories")
		return nil
	}

	if len(names) > 0 {
		for _, name := range names {
			if err := cmdCtx.Engine.Store().DeleteTableDir(name); err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed stubs for %s\n", name)
		}
		return nil
	}

	// No arguments: sweep directories that no longer belong to an instance.
	instances, err := cmdCtx.Host.ListInstances(cmd.Context())
	if err != nil {
		return err
	}
	live := make(map[string]bool, len(instances))
	for _, inst := range instances {
		live[column.Slugify(inst.Name)] = true
	}

	entries, err := os.ReadDir(cmdCtx.Config.StubsDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read stubs directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || live[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(cmdCtx.Config.StubsDir, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		fmt.Fprintf(out, "Removed orphaned stubs: %s\n", entry.Name())
		removed++
	}
	if removed == 0 {
		fmt.Fprintln(out, "Nothing to clean")
	}
	return nil
}
