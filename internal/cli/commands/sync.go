package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/frameless-media/datatables/internal/stub"
	"github.com/frameless-media/datatables/pkg/core"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync [instance...]",
		Short: "Generate missing formatter stubs",
		Long: `Ensure every column of the named instances (or all instances) has a
formatter stub on disk. Existing stubs are never touched; legacy stubs that
fail the structural check are backed up and regenerated.

With --watch, the command keeps running: a change to the repository
database triggers a fresh sync, and every stub saved under the stubs
directory is checked for a well-formed format function.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "watch the stubs directory and lint stubs on save")
	return cmd
}

func runSync(cmd *cobra.Command, names []string, watch bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	instances, err := selectInstances(ctx, cmdCtx, names)
	if err != nil {
		return err
	}

	for _, inst := range instances {
		for _, def := range cmdCtx.Engine.Columns(&inst) {
			upgraded, err := cmdCtx.Engine.Store().UpgradeIfLegacy(inst.Name, def)
			if err != nil {
				return err
			}
			if upgraded {
				fmt.Fprintf(cmd.OutOrStdout(), "Upgraded legacy stub: %s/%s%s\n", inst.Name, def.Slug, stub.ArtifactExt)
			}
		}
		if err := cmdCtx.Engine.SyncInstance(&inst); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %s (%d columns)\n", inst.Name, len(cmdCtx.Engine.Columns(&inst)))
	}

	if watch {
		return watchStubs(ctx, cmdCtx, cmd)
	}
	return nil
}

func selectInstances(ctx context.Context, cmdCtx *CommandContext, names []string) ([]core.TableInstance, error) {
	if len(names) == 0 {
		return cmdCtx.Host.ListInstances(ctx)
	}
	out := make([]core.TableInstance, 0, len(names))
	for _, name := range names {
		inst, err := cmdCtx.Host.GetInstance(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, *inst)
	}
	return out, nil
}

// watchStubs re-syncs when the repository database changes and lints stub
// files as they are saved. It blocks until the context is done or an
// interrupt arrives.
func watchStubs(ctx context.Context, cmdCtx *CommandContext, cmd *cobra.Command) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	dbDir := filepath.Dir(cmdCtx.Config.Database)
	if dbDir == "" {
		dbDir = "."
	}
	if err := watcher.Add(dbDir); err != nil {
		return fmt.Errorf("watch %s: %w", dbDir, err)
	}

	root := cmdCtx.Config.StubsDir
	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read stubs directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := watcher.Add(filepath.Join(root, entry.Name())); err != nil {
				return fmt.Errorf("watch %s: %w", entry.Name(), err)
			}
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for stub changes (ctrl-c to stop)\n", root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sig:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if filepath.Clean(event.Name) == filepath.Clean(cmdCtx.Config.Database) {
				if err := resyncAll(ctx, cmdCtx, cmd); err != nil {
					cmdCtx.Logger.Warn("resync failed", "error", err)
				}
				continue
			}
			if !strings.HasSuffix(event.Name, stub.ArtifactExt) {
				continue
			}
			lintStub(cmdCtx, cmd, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watcher error", "error", err)
		}
	}
}

// resyncAll re-runs the stub sync for every instance, picking up new or
// changed column specs.
func resyncAll(ctx context.Context, cmdCtx *CommandContext, cmd *cobra.Command) error {
	instances, err := cmdCtx.Host.ListInstances(ctx)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		if err := cmdCtx.Engine.SyncInstance(&inst); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Repository changed, re-synced %d instances\n", len(instances))
	return nil
}

func lintStub(cmdCtx *CommandContext, cmd *cobra.Command, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		cmdCtx.Logger.Warn("read stub", "path", path, "error", err)
		return
	}
	rel, relErr := filepath.Rel(cmdCtx.Config.StubsDir, path)
	if relErr != nil {
		rel = path
	}
	if stub.LooksLikeFormatter(content) {
		fmt.Fprintf(cmd.OutOrStdout(), "ok      %s\n", rel)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "INVALID %s: no format(value, settings) function\n", rel)
	}
}
