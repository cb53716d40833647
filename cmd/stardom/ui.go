package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"stardom/internal/game"
	"stardom/internal/store"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v <= min {
			printWarn(fmt.Sprintf("Value must be > %.2f", min))
			continue
		}
		return v, nil
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderDashboard(st *game.GameState) {
	accent.Printf("\n== %s (Week %d, Year %d) ==\n", st.ArtistName, st.Week, game.YearOf(max(st.Week, 1)))
	fmt.Printf("Career:        %d %s\n", st.Stats.CareerLevel, game.CareerLevelName(st.Stats.CareerLevel))
	fmt.Printf("Wealth:        $%s\n", formatMicros(st.Stats.WealthMicros))
	fmt.Printf("Total Streams: %s\n", comma(st.PlatformStreamTotal()))
	if n := len(st.WeeklyStats); n > 0 {
		last := st.WeeklyStats[n-1]
		fmt.Printf("Last Week:     %s streams, %s revenue\n", comma(last.NewStreams), colorizeMicros(last.RevenueMicros))
	}
	fmt.Printf("Reputation %d  Creativity %d  Marketing %d  Networking %d  Fan Loyalty %d\n",
		st.Stats.Reputation, st.Stats.Creativity, st.Stats.Marketing, st.Stats.Networking, st.Stats.FanLoyalty)

	active, unreleased := 0, 0
	for _, s := range st.Songs {
		switch {
		case !s.Released:
			unreleased++
		case s.IsActive:
			active++
		}
	}
	fmt.Printf("Songs: %d (%d charting, %d unreleased)  Albums: %d  Certifications: %d\n",
		len(st.Songs), active, unreleased, len(st.Albums), len(st.Certifications))
	if len(st.Notifications) > 0 {
		printWarn(fmt.Sprintf("%d unread notification(s), run `stardom notifications`.", len(st.Notifications)))
	}
	fmt.Println()
}

func renderWeek(res game.WeekResult) {
	w := res.Stats
	accent.Printf("Week %d\n", w.Week)
	fmt.Printf("  +%s streams  %s revenue  wealth $%s  level %d\n",
		comma(w.NewStreams), colorizeMicros(w.RevenueMicros), formatMicros(w.WealthMicros), w.CareerLevel)
	for _, n := range res.Notifications {
		printNotification(n)
	}
}

func renderSongs(st *game.GameState) {
	accent.Println("\nSongs")
	if len(st.Songs) == 0 {
		printInfo("No songs yet. Record one with `stardom song create`.")
		return
	}
	fmt.Printf("%-36s %-22s %4s %-10s %-9s %14s %12s %10s\n", "ID", "TITLE", "TIER", "STATUS", "FORM", "STREAMS", "LAST WEEK", "HYPE")
	for _, s := range st.Songs {
		fmt.Printf("%-36s %-22s %4d %-10s %-9s %14s %12s %10s\n",
			s.ID,
			truncate(s.Title, 22),
			s.Tier,
			songStatus(s),
			performanceLabel(s.PerformanceType),
			comma(s.Streams),
			comma(s.LastWeekStreams),
			comma(s.Hype),
		)
	}
	fmt.Println()
}

func songStatus(s game.Song) string {
	switch {
	case !s.Released:
		return "draft"
	case s.IsActive:
		return "charting"
	default:
		return "catalog"
	}
}

func performanceLabel(p game.PerformanceType) string {
	switch p {
	case game.PerformanceViral, game.PerformanceComeback:
		return success.Sprint(string(p))
	case game.PerformanceFlop:
		return danger.Sprint(string(p))
	case "":
		return "-"
	default:
		return string(p)
	}
}

func renderAlbums(st *game.GameState) {
	accent.Println("\nAlbums")
	if len(st.Albums) == 0 {
		printInfo("No albums yet.")
		return
	}
	fmt.Printf("%-36s %-22s %6s %-9s %14s\n", "ID", "TITLE", "TRACKS", "STATUS", "STREAMS")
	for _, a := range st.Albums {
		status := "draft"
		if a.Released {
			status = fmt.Sprintf("wk %d", a.ReleaseWeek)
		}
		fmt.Printf("%-36s %-22s %6d %-9s %14s\n", a.ID, truncate(a.Title, 22), len(a.SongIDs), status, comma(a.Streams))
	}
	fmt.Println()
}

func renderPlatforms(st *game.GameState) {
	accent.Printf("\nPlatforms (table v%d)\n", game.PlatformTableVersion)
	fmt.Printf("%-12s %-8s %6s %14s %12s %12s %14s\n", "NAME", "STATUS", "SHARE", "STREAMS", "WEEKLY", "LISTENERS", "REVENUE")
	for _, p := range st.Platforms {
		status := success.Sprint("open")
		if !p.IsUnlocked {
			spec, _ := game.PlatformSpecFor(p.Name)
			status = neutral.Sprintf("lvl %d", spec.UnlockLevel)
		}
		fmt.Printf("%-12s %-8s %5.0f%% %14s %12s %12s %14s\n",
			p.Name,
			status,
			game.MarketShare(p.Name)*100,
			comma(p.TotalStreams),
			comma(p.WeeklyStreams),
			comma(p.Listeners),
			formatMicros(p.RevenueMicros),
		)
	}
	fmt.Println()
}

func renderTrends(st *game.GameState) {
	accent.Println("\nActive Trends")
	if len(st.ActiveTrends) == 0 {
		printInfo("The market is quiet.")
	}
	for _, t := range st.ActiveTrends {
		left := t.StartWeek + t.Duration - st.Week
		fmt.Printf("  %-28s %-8s x%.2f on %s (%d week(s) left)\n",
			truncate(t.Name, 28), t.Type, game.TrendMultiplier(t), strings.Join(t.AffectedPlatforms, ", "), left)
	}
	if n := len(st.TrendHistory); n > 0 {
		accent.Println("Recent Trends")
		for _, t := range st.TrendHistory[max(0, n-5):] {
			fmt.Printf("  %-28s %-8s weeks %d-%d\n", truncate(t.Name, 28), t.Type, t.StartWeek, t.StartWeek+t.Duration-1)
		}
	}
	fmt.Println()
}

func renderAwards(st *game.GameState) {
	accent.Println("\nCertifications")
	if len(st.Certifications) == 0 {
		printInfo("No certifications yet.")
	}
	for _, c := range st.Certifications {
		fmt.Printf("  wk %-5d %-12s %-6s %-24s %s streams\n", c.Week, c.Type, c.EntityKind, truncate(c.Title, 24), comma(c.Streams))
	}

	accent.Println("Awards")
	if len(st.Awards) == 0 {
		printInfo("No nominations yet.")
	}
	for _, a := range st.Awards {
		result := neutral.Sprint("nominated")
		if a.Won {
			result = success.Sprint("WON")
		}
		fmt.Printf("  %d %-22s %-22s %-24s %s\n", a.Year, truncate(a.Show, 22), truncate(a.Category, 22), truncate(a.Title, 24), result)
	}
	for w := st.Week + 1; w <= st.Week+game.WeeksPerYear; w++ {
		if show, ok := game.AwardShowAt(w); ok {
			printInfo(fmt.Sprintf("Next show: %s in week %d.", show, w))
			break
		}
	}
	fmt.Println()
}

func renderWeeklyStats(weeks []game.WeeklyStats) {
	accent.Println("\nWeekly Ledger")
	if len(weeks) == 0 {
		printInfo("No weeks simulated yet.")
		return
	}
	fmt.Printf("%5s %14s %12s %12s %14s %5s %6s %12s\n", "WEEK", "TOTAL", "NEW", "REVENUE", "WEALTH", "LVL", "ACTIVE", "LISTENERS")
	for _, w := range weeks {
		fmt.Printf("%5d %14s %12s %12s %14s %5d %6d %12s\n",
			w.Week,
			comma(w.TotalStreams),
			comma(w.NewStreams),
			formatMicros(w.RevenueMicros),
			formatMicros(w.WealthMicros),
			w.CareerLevel,
			w.ActiveSongs,
			comma(w.TotalListeners),
		)
	}
	fmt.Println()
}

func renderNotifications(notes []game.Notification) {
	if len(notes) == 0 {
		printInfo("No new notifications.")
		return
	}
	for _, n := range notes {
		printNotification(n)
	}
}

func printNotification(n game.Notification) {
	line := fmt.Sprintf("  [wk %d] %s", n.Week, n.Message)
	switch n.Kind {
	case game.NoticeSongFlop, game.NoticeSongInactive, game.NoticeTrendEnded:
		warn.Println(line)
	case game.NoticeLevelUp, game.NoticeCertification, game.NoticeAwardWin, game.NoticeSongViral, game.NoticeSongComeback:
		success.Println(line)
	default:
		neutral.Println(line)
	}
}

func renderSlots(slots []store.SlotInfo, current string) {
	accent.Println("\nSave Slots")
	if len(slots) == 0 {
		printInfo("No saves yet.")
		return
	}
	fmt.Printf("  %-16s %-24s %6s  %s\n", "SLOT", "ARTIST", "WEEK", "UPDATED")
	for _, s := range slots {
		marker := " "
		if s.Slot == current {
			marker = "*"
		}
		fmt.Printf("%s %-16s %-24s %6d  %s\n", marker, truncate(s.Slot, 16), truncate(s.ArtistName, 24), s.Week, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
}

func colorizeMicros(v int64) string {
	text := signedMicros(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatMicros(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / game.MicrosPerDollar
	frac := (v % game.MicrosPerDollar) / 10_000
	return fmt.Sprintf("%s%s.%02d", sign, comma(whole), frac)
}

func signedMicros(v int64) string {
	if v > 0 {
		return "+" + formatMicros(v)
	}
	return formatMicros(v)
}

func comma(v int64) string {
	if v < 0 {
		return "-" + comma(-v)
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
