package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/invrestore/internal/config"
	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/item"
	"github.com/hyperengineering/invrestore/internal/query"
	"github.com/hyperengineering/invrestore/internal/snapshot"
	"github.com/hyperengineering/invrestore/internal/store"
	"github.com/hyperengineering/invrestore/internal/validation"
)

var errNoMatches = errors.New("no matching snapshots")

var (
	listPage   string
	listViewer string
	viewViewer string
)

// now is replaced in tests.
var now = time.Now

var listCmd = &cobra.Command{
	Use:   "list <player> [type]",
	Short: "List a player's snapshots, newest first",
	Long: "List the snapshots recorded for a player, optionally restricted to one event type " +
		"(" + typeNames() + "). Times are shown in the viewer's preferred timezone.",
	Args:              cobra.RangeArgs(1, 2),
	ValidArgsFunction: completeList,
	RunE:              runList,
}

var viewCmd = &cobra.Command{
	Use:               "view <id>",
	Short:             "Show every slot captured by a snapshot",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeIDs,
	RunE:              runView,
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List every player with snapshots, most recently seen first",
	Args:  cobra.NoArgs,
	RunE:  runPlayers,
}

func init() {
	listCmd.Flags().StringVar(&listPage, "page", "1", "Page number, starting at 1")
	listCmd.Flags().StringVar(&listViewer, "viewer", "",
		"UUID of the viewing player whose timezone preference is used")
	viewCmd.Flags().StringVar(&viewViewer, "viewer", "",
		"UUID of the viewing player whose timezone preference is used")
}

func runList(cmd *cobra.Command, args []string) error {
	owner := args[0]
	var typ event.Type
	if len(args) == 2 {
		t, err := query.ParseType(args[1])
		if err != nil {
			return report(cmd, "Invalid event type "+args[1], err)
		}
		typ = t
	}
	page, err := query.ParsePage(listPage)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	loc, err := viewerLocation(st, cfg, listViewer)
	if err != nil {
		return err
	}

	result, err := query.List(st, query.Request{
		Owner:    owner,
		Type:     typ,
		Page:     page,
		PageSize: cfg.QueryResults.MaxResults,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		items := result.Items
		if items == nil {
			items = []snapshot.Snapshot{}
		}
		return printJSON(out, map[string]any{
			"player":    owner,
			"type":      typ,
			"page":      result.Page,
			"max_page":  result.MaxPage,
			"total":     result.Total,
			"has_prev":  result.HasPrev(),
			"has_next":  result.HasNext(),
			"snapshots": items,
		})
	}

	if len(result.Items) == 0 {
		return report(cmd, "No matching snapshots found", errNoMatches)
	}
	writePage(out, result, loc, cfg.QueryResults.FullTimeFormat, now())
	return nil
}

// writePage renders one page: a header, two lines per snapshot and a
// page footer.
func writePage(w io.Writer, p query.Page, loc *time.Location, timeFormat string, at time.Time) {
	fmt.Fprintf(w, "--- Listing snapshots of %s ---\n", p.Owner)
	for _, snap := range p.Items {
		fmt.Fprintf(w, "%s %s %s %s (%d stacks) %s\n",
			snap.Event.Icon(),
			snap.TimeAgo(at),
			snap.OwnerName,
			snap.Event.Verb(),
			snap.StackCount(),
			snap.Position.FormatBlockPos(),
		)
		details := []string{
			snap.ID,
			snapshot.FormatTime(snap.Time, loc, timeFormat),
			snap.Zone.Display(),
		}
		if d := snap.Event.Detail(); d != "" {
			details = append(details, d)
		}
		fmt.Fprintf(w, "    %s\n", strings.Join(details, " | "))
	}
	fmt.Fprintf(w, "------ << Page %d of %d >> ------\n", p.Page, p.MaxPage)
}

func runView(cmd *cobra.Command, args []string) error {
	id := args[0]
	if verr := validation.ValidateSnapshotID("id", id); verr != nil {
		return report(cmd, fmt.Sprintf("Cannot find the snapshot %q", id), fmt.Errorf("%w: %w", store.ErrNotFound, verr))
	}

	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.FindByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return report(cmd, fmt.Sprintf("Cannot find the snapshot %q", id), fmt.Errorf("%w: %s", err, id))
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, snap)
	}

	loc, err := viewerLocation(st, cfg, viewViewer)
	if err != nil {
		return err
	}
	writeSnapshot(out, snap, loc, cfg.QueryResults.FullTimeFormat, now())
	return nil
}

// writeSnapshot renders a snapshot with every occupied slot, grouped the
// way the inventory screen groups them.
func writeSnapshot(w io.Writer, snap snapshot.Snapshot, loc *time.Location, timeFormat string, at time.Time) {
	fmt.Fprintf(w, "%s %s %s %s\n", snap.Event.Icon(), snap.TimeAgo(at), snap.OwnerName, snap.Event.Verb())

	tw := newTabWriter(w)
	fmt.Fprintf(tw, "ID:\t%s\n", snap.ID)
	fmt.Fprintf(tw, "Player:\t%s (%s)\n", snap.OwnerName, snap.OwnerID)
	fmt.Fprintf(tw, "Time:\t%s\n", snapshot.FormatTime(snap.Time, loc, timeFormat))
	fmt.Fprintf(tw, "Position:\t%s in %s\n", snap.Position.FormatPos(), snap.Zone)
	if d := snap.Event.Detail(); d != "" {
		fmt.Fprintf(tw, "Detail:\t%s\n", d)
	}
	fmt.Fprintf(tw, "Stacks:\t%d\n", snap.StackCount())
	tw.Flush()

	c := snap.Contents
	writeSection(w, "Hotbar", c.Inventory[:9], 0)
	writeSection(w, "Inventory", c.Inventory[9:], 9)
	writeSection(w, "Armor", c.Armor[:], 0)
	writeSection(w, "Offhand", c.Offhand[:], 0)
	writeSection(w, "Ender Chest", c.EnderChest[:], 0)
}

func writeSection(w io.Writer, title string, slots []item.Stack, base int) {
	fmt.Fprintf(w, "%s:\n", title)
	tw := newTabWriter(w)
	empty := true
	for i, s := range slots {
		if s.IsEmpty() {
			continue
		}
		empty = false
		fmt.Fprintf(tw, "  %d\t%s\tx%d", base+i, s.ID, s.Count)
		if len(s.Components) > 0 {
			fmt.Fprintf(tw, "\t%s", s.Components)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
	if empty {
		fmt.Fprintln(w, "  (empty)")
	}
}

func runPlayers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	names := st.DistinctOwnerNames()
	out := cmd.OutOrStdout()
	if jsonOutput {
		if names == nil {
			names = []string{}
		}
		return printJSON(out, map[string]any{
			"players": names,
			"total":   len(names),
		})
	}

	if len(names) == 0 {
		fmt.Fprintln(out, "No players found.")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

// viewerLocation resolves the zone times are shown in: the viewer's stored
// preference, or the configured default.
func viewerLocation(st *store.Store, cfg *config.Config, viewer string) (*time.Location, error) {
	fallback := cfg.QueryResults.Location()
	if viewer == "" {
		return fallback, nil
	}
	if verr := validation.ValidateUUID("viewer", viewer); verr != nil {
		return nil, verr
	}
	id, err := uuid.Parse(viewer)
	if err != nil {
		return nil, fmt.Errorf("viewer: %w", err)
	}
	return st.Preferences(id).Location(fallback), nil
}

func eventTypeNames() []string {
	types := event.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func typeNames() string {
	return strings.Join(eventTypeNames(), ", ")
}

// completionStore opens the store for shell completion. Failures yield no
// candidates.
func completionStore(cmd *cobra.Command) (*store.Store, bool) {
	cfg, err := loadConfig(io.Discard)
	if err != nil {
		return nil, false
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, false
	}
	return st, true
}

func completeList(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		st, ok := completionStore(cmd)
		if !ok {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer st.Close()
		return st.DistinctOwnerNames(), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return eventTypeNames(), cobra.ShellCompDirectiveNoFileComp
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

func completeIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	st, ok := completionStore(cmd)
	if !ok {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer st.Close()
	return st.AllIDs(), cobra.ShellCompDirectiveNoFileComp
}
