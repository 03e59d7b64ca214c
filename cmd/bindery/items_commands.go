package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bindery/internal/api"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	itemsCmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and manage book items",
	}

	itemsCmd.AddCommand(newItemsListCommand(ctx))
	itemsCmd.AddCommand(newItemsRemoveCommand(ctx))
	itemsCmd.AddCommand(newItemsMoveCommand(ctx))

	return itemsCmd
}

func newItemsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List book items in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *api.Client) error {
				items, err := client.Items(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.ItemListResponse{Items: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "The book has no items; drop files into the inbox or use `bindery add`")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					optimized := "-"
					if item.CachedLevel != "" {
						optimized = fmt.Sprintf("%s (%s)", formatSize(item.CachedSize), item.CachedLevel)
					}
					pages := "-"
					if item.PageCount > 0 {
						pages = strconv.Itoa(item.PageCount)
					}
					rows = append(rows, []string{
						strconv.Itoa(item.Position),
						truncateID(item.ID),
						item.Title,
						item.Kind,
						formatSize(item.RawSize),
						pages,
						optimized,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"#", "ID", "Title", "Kind", "Raw", "Pages", "Optimized"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit items as JSON")
	return cmd
}

func newItemsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an item from the book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(client *api.Client) error {
				id, err := resolveItemID(cmd, client, args[0])
				if err != nil {
					return err
				}
				if err := client.RemoveItem(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item %s\n", id)
				return nil
			})
		},
	}
}

func newItemsMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <position>",
		Short: "Move an item to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil || position < 1 {
				return fmt.Errorf("invalid position %q: expected a 1-based index", args[1])
			}
			return ctx.withClient(cmd.Context(), func(client *api.Client) error {
				id, err := resolveItemID(cmd, client, args[0])
				if err != nil {
					return err
				}
				if err := client.MoveItem(cmd.Context(), id, position); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved item %s to position %d\n", id, position)
				return nil
			})
		},
	}
}

// resolveItemID accepts either a full item ID or the unique ID prefix that
// `items list` prints.
func resolveItemID(cmd *cobra.Command, client *api.Client, arg string) (string, error) {
	items, err := client.Items(cmd.Context())
	if err != nil {
		return "", err
	}
	var match string
	for _, item := range items {
		if item.ID == arg {
			return item.ID, nil
		}
		if len(arg) >= 4 && len(item.ID) >= len(arg) && item.ID[:len(arg)] == arg {
			if match != "" {
				return "", fmt.Errorf("item prefix %q is ambiguous", arg)
			}
			match = item.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no item matches %q", arg)
	}
	return match, nil
}
