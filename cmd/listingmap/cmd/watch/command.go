// Package watch provides a headless map screen that prints marker changes
// as the listing store changes.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/internal/appcontext"
	"github.com/agentstation/listingmap/internal/location"
	"github.com/agentstation/listingmap/internal/selection"
	"github.com/agentstation/listingmap/internal/subscription"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/surface"
)

// NewCommand creates the watch command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		at       string
		search   string
		duration time.Duration
		f        follow
	)

	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: "core",
		Short:   "Follow marker changes in the terminal",
		Long: `Watch shows the listing map headlessly. Every marker call is printed:

  + #3 Room in Sinza [available] -6.773500,39.223200 $450/month Sinza
  ~ #3 ...   marker redrawn in place
  - #3       marker removed
  @ camera   viewport moved

Notices and subscription state changes are printed with "!" and "=".
Interrupt to hide the map and exit.`,
		Example: `  # Follow a seeded store
  LISTINGMAP_STORE_SEED=rooms.yaml listingmap watch

  # Place the current-location marker and a search marker
  listingmap watch --at -6.7735,39.2232 --search Masaki

  # Walk the current-location marker from Sinza to Kariakoo
  listingmap watch --at -6.7735,39.2232 --walk -6.8162,39.2803 --follow 2s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return run(ctx, cmd, app, at, search, f)
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "current location as lat,lng")
	cmd.Flags().StringVar(&search, "search", "", "place to search for once the map is shown")
	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long (default: until interrupted)")
	cmd.Flags().DurationVar(&f.every, "follow", 0, "re-read the location this often and move the marker (needs --at)")
	cmd.Flags().StringArrayVar(&f.walk, "walk", nil, "further positions reported while following, as lat,lng (repeatable)")
	return cmd
}

// follow scripts device movement for --follow.
type follow struct {
	every time.Duration
	walk  []string
}

// platform builds the scripted device: it reports here as its last fix
// and, while following, walks through the --walk positions.
func (f follow) platform(here listings.Coordinate) (*location.Scripted, error) {
	p := location.NewScripted().WithLastKnown(here, 10)
	if f.every <= 0 {
		return p, nil
	}
	path := []listings.Coordinate{here}
	for _, raw := range f.walk {
		c, err := listings.ParseCoordinate(raw)
		if err != nil {
			return nil, err
		}
		path = append(path, c)
	}
	return p.QueueFresh(10, path...), nil
}

func run(ctx context.Context, cmd *cobra.Command, app appcontext.Interface, at, search string, f follow) error {
	st, err := app.Store(ctx)
	if err != nil {
		return fmt.Errorf("opening listing store: %w", err)
	}

	out := cmd.OutOrStdout()
	rec := surface.NewRecorder()
	surf := surface.NewMulti(rec, newPrinter(out))

	var extra []listingmap.Option
	if at != "" {
		here, err := listings.ParseCoordinate(at)
		if err != nil {
			return err
		}
		platform, err := f.platform(here)
		if err != nil {
			return err
		}
		extra = append(extra, listingmap.WithLocationPlatform(platform))
	}

	screen, err := listingmap.New(st, surf, app.ScreenOptions(extra...)...)
	if err != nil {
		return err
	}
	defer screen.Destroy()

	screen.OnNotice(func(n selection.Notice) {
		_, _ = fmt.Fprintf(out, "! %s: %s\n", n.Kind, n.Message)
	})
	screen.OnStateChange(func(t subscription.Transition) {
		_, _ = fmt.Fprintf(out, "= %s -> %s (generation %d)\n", t.From, t.To, t.Generation)
	})

	if err := screen.Visible(); err != nil {
		return err
	}
	if at != "" {
		if _, err := screen.Locate(ctx); err != nil {
			app.Logger().Warn().Err(err).Msg("Locate failed")
		}
	}
	if search != "" {
		if _, err := screen.Search(ctx, search); err != nil {
			app.Logger().Warn().Err(err).Str("query", search).Msg("Search failed")
		}
	}

	followed := make(chan struct{})
	if at != "" && f.every > 0 {
		go func() {
			defer close(followed)
			if err := screen.Follow(ctx, f.every); err != nil && ctx.Err() == nil {
				app.Logger().Warn().Err(err).Msg("Follow stopped")
			}
		}()
	} else {
		close(followed)
	}

	<-ctx.Done()
	<-followed
	screen.Hidden()

	_, _ = fmt.Fprintf(out, "%d markers drawn, state %s\n", len(rec.Handles()), screen.State())
	return nil
}
