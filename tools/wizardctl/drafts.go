package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/WizardKit/pkg/config"
	"github.com/AltairaLabs/WizardKit/runtime/drafts"
)

func newDraftsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "List, show and delete saved drafts",
	}
	cmd.AddCommand(newDraftsListCmd(g), newDraftsShowCmd(g), newDraftsDeleteCmd(g), newDraftsSchemaCmd())
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, g *globalOptions, fn func(drafts.Store) error) error {
	spec, err := g.serviceSpec()
	if err != nil {
		return err
	}
	store, closeStore, err := config.OpenStore(ctx, spec.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	return fn(store)
}

func newDraftsListCmd(g *globalOptions) *cobra.Command {
	var opts drafts.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List draft ids, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), g, func(store drafts.Store) error {
				ids, err := store.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				for _, id := range ids {
					printf(cmd.OutOrStdout(), "%s\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.WizardID, "wizard", "", "Only drafts of this wizard")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of ids (default 100)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of ids to skip")
	return cmd
}

func newDraftsShowCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a draft as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), g, func(store drafts.Store) error {
				d, err := store.Load(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("draft %s: %w", args[0], err)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			})
		},
	}
}

func newDraftsDeleteCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete drafts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), g, func(store drafts.Store) error {
				for _, id := range args {
					if err := store.Delete(cmd.Context(), id); err != nil {
						return fmt.Errorf("draft %s: %w", id, err)
					}
					printf(cmd.OutOrStdout(), "deleted %s\n", id)
				}
				return nil
			})
		},
	}
}

func newDraftsSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of a draft record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := json.MarshalIndent(drafts.JSONSchema(), "", "  ")
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", data)
			return nil
		},
	}
}
