package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"stardom/internal/api"
	cl "stardom/internal/cli"
	"stardom/internal/config"
	"stardom/internal/game"
	"stardom/internal/store"
	"stardom/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type app struct {
	cfg     config.CLIConfig
	log     *slog.Logger
	backend cl.Backend
	store   store.Store
}

func main() {
	cfg, err := config.LoadCLIFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	a := &app{
		cfg: cfg,
		log: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})),
	}

	root := &cobra.Command{
		Use:          "stardom",
		Short:        "Weekly music career simulation",
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.cfg.Store.Backend, "store", a.cfg.Store.Backend, "local save backend: file or sqlite")
	root.PersistentFlags().StringVar(&a.cfg.Store.Slot, "slot", a.cfg.Store.Slot, "save slot name (sqlite)")
	root.PersistentFlags().StringVar(&a.cfg.Store.Path, "save", a.cfg.Store.Path, "save file or database path")
	root.PersistentFlags().StringVar(&a.cfg.APIBaseURL, "api", a.cfg.APIBaseURL, "play against a stardom api instead of a local save")

	root.AddCommand(
		newNewCmd(a),
		newStatusCmd(a),
		newAdvanceCmd(a),
		newSongCmd(a),
		newAlbumCmd(a),
		newPlatformsCmd(a),
		newTrendsCmd(a),
		newCertsCmd(a),
		newStatsCmd(a),
		newNotificationsCmd(a),
		newSyncCmd(a),
		newSlotsCmd(a),
	)

	if err := root.Execute(); err != nil {
		_ = a.close()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) remote() bool {
	return strings.TrimSpace(a.cfg.APIBaseURL) != ""
}

func (a *app) backendName() string {
	return strings.ToLower(strings.TrimSpace(a.cfg.Store.Backend))
}

func (a *app) client() *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(a.cfg.APIBaseURL), "/"), a.cfg.APIToken)
}

// open returns the backend for this invocation, opening the local save on
// first use.
func (a *app) open(ctx context.Context) (cl.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	if a.remote() {
		queue, err := syncq.Open("")
		if err != nil {
			return nil, err
		}
		a.backend = cl.NewRemote(a.client(), queue)
		return a.backend, nil
	}
	if a.backendName() == store.BackendPostgres {
		return nil, fmt.Errorf("the cli plays postgres saves through the api, set STARDOM_API_URL")
	}
	st, err := store.Open(ctx, a.cfg.Store, a.log)
	if err != nil {
		return nil, err
	}
	svc := game.NewService(st, game.NewEngine(a.cfg.Tuning, a.log), a.log)
	svc.SetShared(store.Shared(a.cfg.Store.Backend))
	if err := svc.Open(ctx, ""); err != nil {
		st.Close()
		return nil, err
	}
	a.store = st
	a.backend = cl.NewLocal(svc, st)
	return a.backend, nil
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	a.store = nil
	return err
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new [artist name]",
		Short: "Start a new career, replacing the current save",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			if name == "" {
				var err error
				name, err = promptRequired("Artist name")
				if err != nil {
					return err
				}
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			st, err := b.Reset(ctx, name)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s starts their career with $%s.", st.ArtistName, formatMicros(st.Stats.WealthMicros)))
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"dash"},
		Short:   "Show the career dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			st, err := b.State(ctx)
			if err != nil {
				return err
			}
			renderDashboard(st)
			return nil
		},
	}
}

func newAdvanceCmd(a *app) *cobra.Command {
	var weeks int
	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Simulate one or more weeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if weeks < 1 || weeks > 520 {
				return fmt.Errorf("weeks must be between 1 and 520")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(weeks)*10*time.Second)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			for i := 0; i < weeks; i++ {
				res, err := b.AdvanceWeek(ctx)
				if err != nil {
					return err
				}
				renderWeek(res)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&weeks, "weeks", "n", 1, "number of weeks to simulate")
	return cmd
}

func newSongCmd(a *app) *cobra.Command {
	song := &cobra.Command{
		Use:     "song",
		Aliases: []string{"songs"},
		Short:   "Write, release and promote songs",
	}
	song.AddCommand(
		newSongListCmd(a),
		newSongCreateCmd(a),
		newSongReleaseCmd(a),
		newSongPromoteCmd(a),
		newSongFeatureCmd(a),
	)
	return song
}

func newSongListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List songs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			st, err := b.State(ctx)
			if err != nil {
				return err
			}
			renderSongs(st)
			return nil
		},
	}
}

func newSongCreateCmd(a *app) *cobra.Command {
	var tier int
	cmd := &cobra.Command{
		Use:   "create [title]",
		Short: "Record a new song (tier 1-5 sets cost and base streams)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, err := argOrPrompt(args, 0, "Title")
			if err != nil {
				return err
			}
			if tier == 0 {
				v, err := promptInt64("Tier (1-5)", 1)
				if err != nil {
					return err
				}
				tier = int(v)
			}
			if cost, err := game.SongCostMicros(tier); err == nil {
				printInfo(fmt.Sprintf("Production cost: $%s", formatMicros(cost)))
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			song, err := b.CreateSong(ctx, api.CreateSongRequest{Title: title, Tier: tier}, uuid.NewString())
			if err != nil {
				return queuedOrErr(err)
			}
			printSuccess(fmt.Sprintf("Recorded %q (tier %d) id=%s", song.Title, song.Tier, song.ID))
			return nil
		},
	}
	cmd.Flags().IntVarP(&tier, "tier", "t", 0, "quality tier 1-5")
	return cmd
}

func newSongReleaseCmd(a *app) *cobra.Command {
	var platforms []string
	cmd := &cobra.Command{
		Use:   "release <song id>",
		Short: "Release a song on streaming platforms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			if len(platforms) == 0 {
				platforms, err = defaultPlatforms(ctx, b)
				if err != nil {
					return err
				}
			}
			song, err := b.ReleaseSong(ctx, args[0], api.ReleaseRequest{Platforms: platforms}, uuid.NewString())
			if err != nil {
				return queuedOrErr(err)
			}
			printSuccess(fmt.Sprintf("%q is out on %s.", song.Title, strings.Join(song.ReleasePlatforms, ", ")))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "platforms to release on (default: every unlocked platform)")
	return cmd
}

func newSongPromoteCmd(a *app) *cobra.Command {
	var kind string
	var budget float64
	cmd := &cobra.Command{
		Use:   "promote <song id>",
		Short: "Spend money on social, radio, playlist or tour promotion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind == "" {
				var err error
				kind, err = promptChoice("Promotion", []string{"social", "radio", "playlist", "tour"}, "social")
				if err != nil {
					return err
				}
			}
			if budget <= 0 {
				var err error
				budget, err = promptFloat("Budget ($)", 0)
				if err != nil {
					return err
				}
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			song, err := b.PromoteSong(ctx, args[0], api.PromoteRequest{Type: kind, Budget: budget}, uuid.NewString())
			if err != nil {
				return queuedOrErr(err)
			}
			printSuccess(fmt.Sprintf("%q hype is now %s.", song.Title, comma(song.Hype)))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "", "social, radio, playlist or tour")
	cmd.Flags().Float64Var(&budget, "budget", 0, "budget in dollars")
	return cmd
}

func newSongFeatureCmd(a *app) *cobra.Command {
	var fee float64
	cmd := &cobra.Command{
		Use:   "feature <song id> [artist]",
		Short: "Add a featured artist to an unreleased song",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			artist, err := argOrPrompt(args, 1, "Featured artist")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			song, err := b.AddFeature(ctx, args[0], api.FeatureRequest{Artist: artist, Fee: fee}, uuid.NewString())
			if err != nil {
				return queuedOrErr(err)
			}
			printSuccess(fmt.Sprintf("%q now features %s.", song.Title, strings.Join(song.Featuring, ", ")))
			return nil
		},
	}
	cmd.Flags().Float64Var(&fee, "fee", 0, "fee paid to the featured artist in dollars")
	return cmd
}

func newAlbumCmd(a *app) *cobra.Command {
	album := &cobra.Command{
		Use:     "album",
		Aliases: []string{"albums"},
		Short:   "Group songs into albums",
	}

	album.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List albums",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			st, err := b.State(ctx)
			if err != nil {
				return err
			}
			renderAlbums(st)
			return nil
		},
	})

	var songIDs []string
	create := &cobra.Command{
		Use:   "create [title]",
		Short: "Create an album from 3 to 20 songs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, err := argOrPrompt(args, 0, "Album title")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			album, err := b.CreateAlbum(ctx, api.CreateAlbumRequest{Title: title, SongIDs: songIDs}, uuid.NewString())
			if err != nil {
				return queuedOrErr(err)
			}
			printSuccess(fmt.Sprintf("Album %q created with %d tracks, id=%s", album.Title, len(album.SongIDs), album.ID))
			return nil
		},
	}
	create.Flags().StringSliceVarP(&songIDs, "song", "s", nil, "song ids, in track order")

	var platforms []string
	release := &cobra.Command{
		Use:   "release <album id>",
		Short: "Release an album and its unreleased tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			if len(platforms) == 0 {
				platforms, err = defaultPlatforms(ctx, b)
				if err != nil {
					return err
				}
			}
			album, err := b.ReleaseAlbum(ctx, args[0], api.ReleaseRequest{Platforms: platforms}, uuid.NewString())
			if err != nil {
				return queuedOrErr(err)
			}
			printSuccess(fmt.Sprintf("Album %q released on %s.", album.Title, strings.Join(album.ReleasePlatforms, ", ")))
			return nil
		},
	}
	release.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "platforms to release on (default: every unlocked platform)")

	album.AddCommand(create, release)
	return album
}

func newPlatformsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "Show streaming platforms and their totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			st, err := b.State(ctx)
			if err != nil {
				return err
			}
			renderPlatforms(st)
			return nil
		},
	}
}

func newTrendsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Show active and past market trends",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			st, err := b.State(ctx)
			if err != nil {
				return err
			}
			renderTrends(st)
			return nil
		},
	}
}

func newCertsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "awards",
		Aliases: []string{"certs", "certifications"},
		Short:   "Show certifications, nominations and wins",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			st, err := b.State(ctx)
			if err != nil {
				return err
			}
			renderAwards(st)
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the weekly ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			weeks, err := b.WeeklyStats(ctx, limit)
			if err != nil {
				return err
			}
			renderWeeklyStats(weeks)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 12, "number of recent weeks (0 for all)")
	return cmd
}

func newNotificationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "Read and clear pending notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			notes, err := b.DrainNotifications(ctx)
			if err != nil {
				return err
			}
			renderNotifications(notes)
			return nil
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay writes queued while the api was unreachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.remote() {
				return fmt.Errorf("sync needs an api, set STARDOM_API_URL or --api")
			}
			queue, err := syncq.Open("")
			if err != nil {
				return err
			}
			pending, err := queue.Load()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			res, err := cl.Sync(ctx, a.client(), queue)
			if err != nil {
				return err
			}
			for _, d := range res.Dropped {
				printError(fmt.Sprintf("Dropped %s %s: %v", d.Command.Method, d.Command.Path, d.Err))
			}
			if res.Remaining > 0 {
				printWarn(fmt.Sprintf("API unreachable, %d command(s) still queued.", res.Remaining))
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d dropped=%d remaining=%d", res.Replayed, len(res.Dropped), res.Remaining))
			return nil
		},
	}
}

func newSlotsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List save slots in the sqlite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.remote() || a.backendName() != store.BackendSQLite {
				return fmt.Errorf("slots are only kept by the sqlite store, use --store sqlite")
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			st, err := store.OpenSQLite(ctx, a.cfg.Store.Path, a.cfg.Store.Slot)
			if err != nil {
				return err
			}
			defer st.Close()
			slots, err := st.Slots(ctx)
			if err != nil {
				return err
			}
			renderSlots(slots, a.cfg.Store.Slot)
			return nil
		},
	}
}

// defaultPlatforms releases on everything the career has unlocked.
func defaultPlatforms(ctx context.Context, b cl.Backend) ([]string, error) {
	st, err := b.State(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range st.Platforms {
		if p.IsUnlocked {
			out = append(out, p.Name)
		}
	}
	return out, nil
}

func queuedOrErr(err error) error {
	if errors.Is(err, cl.ErrQueued) {
		printWarn("API unreachable. The command was queued, run `stardom sync` later.")
		return nil
	}
	return err
}

func argOrPrompt(args []string, idx int, label string) (string, error) {
	if len(args) > idx {
		if v := strings.TrimSpace(args[idx]); v != "" {
			return v, nil
		}
	}
	return promptRequired(label)
}
