// Package listing provides commands to read and post listings.
package listing

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/cmd/listingmap/cmd/output"
	"github.com/agentstation/listingmap/internal/appcontext"
	"github.com/agentstation/listingmap/internal/posting"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/surface"
)

// NewCommand creates the listing command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "listing",
		Aliases: []string{"listings"},
		GroupID: "listings",
		Short:   "Read and post listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newGetCommand(app))
	cmd.AddCommand(newPostCommand(app))
	return cmd
}

func newGetCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := app.Store(ctx)
			if err != nil {
				return err
			}
			screen, err := listingmap.New(st, surface.NewRecorder(), app.ScreenOptions()...)
			if err != nil {
				return err
			}
			defer screen.Destroy()

			l, err := screen.Details(ctx, listings.ID(args[0]))
			if err != nil {
				return err
			}
			return output.Print(cmd.OutOrStdout(), app.OutputFormat(), view{l}, func(w io.Writer) error {
				return printListing(w, l)
			})
		},
	}
}

func newPostCommand(app appcontext.Interface) *cobra.Command {
	var (
		d         listings.Draft
		price     float64
		at        string
		amenities []string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a new listing",
		Long: `Post validates a listing and stores it as available. The address is
looked up from the location; when the lookup fails the listing is stored
with "Address not found".`,
		Example: `  listingmap listing post --title "Room in Sinza" --description "Quiet, near the bus stop" \
    --price 450 --at -6.7735,39.2232 --amenity wifi --amenity water`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("price") {
				d.Price = &price
			}
			if at != "" {
				c, err := listings.ParseCoordinate(at)
				if err != nil {
					return err
				}
				d.Position = &c
			}
			d.Amenities = amenities

			st, err := app.Store(ctx)
			if err != nil {
				return err
			}
			poster := posting.New(st, posting.WithGeocoder(app.Geocoder()), posting.WithLogger(app.Logger()))
			l, err := poster.Post(ctx, d)
			if err != nil {
				return err
			}
			return output.Print(cmd.OutOrStdout(), app.OutputFormat(), view{l}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Posted %s\n", l.ID)
				if err != nil {
					return err
				}
				return printListing(w, l)
			})
		},
	}

	cmd.Flags().StringVar(&d.Title, "title", "", "listing title")
	cmd.Flags().StringVar(&d.Description, "description", "", "listing description")
	cmd.Flags().Float64Var(&price, "price", 0, "monthly price")
	cmd.Flags().StringVar(&at, "at", "", "location as lat,lng")
	cmd.Flags().StringArrayVar(&amenities, "amenity", nil, "amenity (repeatable)")
	cmd.Flags().StringArrayVar(&d.Images, "image", nil, "image URL (repeatable)")
	cmd.Flags().StringVar(&d.PostedBy, "by", "", "poster id")
	return cmd
}

// view renders a listing as a field/value table and otherwise encodes
// exactly like the listing.
type view struct {
	listings.Listing `yaml:",inline"`
}

func (v view) TableData() output.Data {
	l := v.Listing
	rows := [][]string{
		{"id", string(l.ID)},
		{"title", l.Title},
		{"price", fmt.Sprintf("%.2f/month", l.Price)},
		{"status", status(l)},
		{"address", l.Address},
		{"location", l.Position.String()},
	}
	if len(l.Amenities) > 0 {
		rows = append(rows, []string{"amenities", strings.Join(l.Amenities, ", ")})
	}
	return output.Data{Headers: []string{"field", "value"}, Rows: rows}
}

func status(l listings.Listing) string {
	if l.Available {
		return "available"
	}
	return "occupied"
}

func printListing(w io.Writer, l listings.Listing) error {
	lines := []string{
		l.Title,
		fmt.Sprintf("  id:        %s", l.ID),
		fmt.Sprintf("  price:     %.2f/month", l.Price),
		fmt.Sprintf("  status:    %s", status(l)),
		fmt.Sprintf("  address:   %s", l.Address),
		fmt.Sprintf("  location:  %s", l.Position),
	}
	if len(l.Amenities) > 0 {
		lines = append(lines, "  amenities: "+strings.Join(l.Amenities, ", "))
	}
	if l.Description != "" {
		lines = append(lines, "", l.Description)
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
