package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"floatrans/internal/config"
	"floatrans/internal/keymap"
	"floatrans/internal/kvstore"
	"floatrans/internal/shortcut"
)

var openKVStoreFn = kvstore.Open

// openRegistry loads the persisted shortcuts. The returned close func
// releases the database. No GlobalSyncer is attached: the OS hotkey
// belongs to the running app.
func openRegistry(ctx context.Context, opts *globalOptions) (*keymap.Registry, func(), error) {
	store, err := openStore(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return loadRegistry(ctx, store)
}

func openStore(ctx context.Context, opts *globalOptions) (*kvstore.Store, error) {
	cfg, path := opts.loadConfig()
	return openKVStoreFn(ctx, config.ResolveStoragePath(cfg, path))
}

func loadRegistry(ctx context.Context, store *kvstore.Store) (*keymap.Registry, func(), error) {
	registry := keymap.New(keymap.Options{Store: keymap.NewKVStore(store)})
	if err := registry.Load(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return registry, func() { _ = store.Close() }, nil
}

func newShortcutsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shortcuts",
		Short: "List and edit keyboard shortcuts",
		Long: `List and edit the persisted keyboard shortcuts. Changes made here are
picked up by the app on its next start; a running app keeps its current
global hotkey until then.`,
	}
	cmd.AddCommand(newShortcutsListCmd(opts))
	cmd.AddCommand(newShortcutsSetCmd(opts))
	cmd.AddCommand(newShortcutsResetCmd(opts))
	return cmd
}

func newShortcutsListCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the effective bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, closeFn, err := openRegistry(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(registry.Bindings())
			}
			return printBindings(cmd.OutOrStdout(), registry.Bindings())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print bindings as JSON")
	return cmd
}

func newShortcutsSetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set ACTION BINDING",
		Short: "Rebind an action",
		Example: `  floatransctl shortcuts set pin_window Ctrl+Shift+P
  floatransctl shortcuts set toggle_translator_window Alt+Space`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := keymap.ParseAction(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[0])
			}
			registry, closeFn, err := openRegistry(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := registry.Update(cmd.Context(), action, args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", action, registry.Get(action))
			return err
		},
	}
}

func newShortcutsResetCmd(opts *globalOptions) *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default bindings",
		Long: `Restore the default bindings. With --purge the stored shortcut
document is deleted instead, which also drops entries for actions this
version does not know.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			if purge {
				if err := store.Delete(ctx, keymap.StorageKey); err != nil {
					_ = store.Close()
					return err
				}
			}
			registry, closeFn, err := loadRegistry(ctx, store)
			if err != nil {
				return err
			}
			defer closeFn()
			if !purge {
				if err := registry.ResetToDefaults(ctx); err != nil {
					return err
				}
			}
			return printBindings(cmd.OutOrStdout(), registry.Bindings())
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "delete the stored document instead of writing defaults")
	return cmd
}

func printBindings(w io.Writer, bindings map[keymap.Action]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tBINDING\tDISPLAY")
	for _, action := range keymap.Actions {
		binding := bindings[action]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", action, binding, shortcut.DisplayString(binding))
	}
	return tw.Flush()
}
