// Package export implements the inventory asset-id export subcommand.
package export

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ugcscan/ugcscan-go/internal/conf"
	"github.com/ugcscan/ugcscan-go/internal/httpclient"
	"github.com/ugcscan/ugcscan-go/internal/inventory"
)

// Command creates the export command, which dumps the asset ids of a user's
// inventory to a file.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [user-id]",
		Short: "Export a user's inventory asset ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}

			client := inventory.NewClient(&settings.Inventory, httpclient.New(nil))
			ids, err := client.AssetIDs(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("No assets found.")
				return nil
			}

			if output == "" {
				output = fmt.Sprintf("%d_asset_ids.txt", userID)
			}
			if err := inventory.WriteIDs(output, ids); err != nil {
				return err
			}
			fmt.Printf("Saved %d asset ids to %s\n", len(ids), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().IntVar(&settings.Inventory.AssetType, "asset-type", viper.GetInt("inventory.assettype"), "Asset type id to export")

	return cmd
}
