// Package geocode provides the place lookup command.
package geocode

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/listingmap/cmd/listingmap/cmd/output"
	"github.com/agentstation/listingmap/internal/appcontext"
	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/pkg/listings"
)

// NewCommand creates the geocode command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var reverse bool

	cmd := &cobra.Command{
		Use:     "geocode <query>",
		GroupID: "listings",
		Short:   "Look up a place or an address",
		Example: `  listingmap geocode "Sinza, Dar es Salaam"
  listingmap geocode --reverse -- -6.7735,39.2232`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g := app.Geocoder()
			query := strings.Join(args, " ")

			if reverse {
				at, err := listings.ParseCoordinate(query)
				if err != nil {
					return err
				}
				addr, err := g.Reverse(ctx, at)
				if err != nil {
					return err
				}
				return output.Print(cmd.OutOrStdout(), app.OutputFormat(), map[string]any{"position": at, "address": addr},
					func(w io.Writer) error {
						_, err := fmt.Fprintln(w, addr)
						return err
					})
			}

			place, err := g.Forward(ctx, query)
			if err != nil {
				return err
			}
			return output.Print(cmd.OutOrStdout(), app.OutputFormat(), place, func(w io.Writer) error {
				return printPlace(w, place)
			})
		},
	}

	cmd.Flags().BoolVar(&reverse, "reverse", false, "treat the argument as lat,lng and print its address")
	return cmd
}

func printPlace(w io.Writer, p geocoding.Place) error {
	_, err := fmt.Fprintf(w, "%s\n  %s\n", p.Label, p.Position)
	return err
}
