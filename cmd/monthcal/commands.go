package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"monthcal/internal/calendar"
	"monthcal/internal/capture"
	"monthcal/internal/config"
	"monthcal/internal/form"
	"monthcal/internal/grid"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/overflow"
	"monthcal/internal/tui"
	"monthcal/internal/web"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI, JSON API and ICS feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, st, closeStore, err := flags.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			appLog.Info("monthcal starting", "version", version, "events", len(st.Events()))

			ctx, cancel := signalContext()
			defer cancel()

			if conf.Capture.Cron != "" {
				sched, err := capture.NewScheduler(conf.Capture.Cron, captureOptions(conf, ""), nil)
				if err != nil {
					return err
				}
				sched.Start(ctx)
			}

			return web.StartServer(ctx, conf, st)
		},
	}
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit the calendar in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, st, closeStore, err := flags.openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			return tui.Run(st, grid.ParseWeekStart(conf.WeekStart))
		},
	}
}

// eventFlags are the form fields as command-line flags.
type eventFlags struct {
	date   string
	title  string
	allDay bool
	start  string
	end    string
	color  string
}

func (e *eventFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&e.date, "date", "", "Day of the event (YYYY-MM-DD)")
	f.StringVar(&e.title, "title", "", "Event title")
	f.BoolVar(&e.allDay, "all-day", false, "All-day event")
	f.StringVar(&e.start, "start", "", "Start time (HH:MM)")
	f.StringVar(&e.end, "end", "", "End time (HH:MM)")
	f.StringVar(&e.color, "color", "", fmt.Sprintf("Color, one of %v", model.Colors))
}

// apply overlays the flags the user actually set onto in.
func (e *eventFlags) apply(cmd *cobra.Command, in form.Input) form.Input {
	changed := cmd.Flags().Changed
	if changed("title") {
		in.Title = e.title
	}
	if changed("all-day") {
		in.AllDay = e.allDay
	}
	if changed("start") {
		in.Start = e.start
	}
	if changed("end") {
		in.End = e.end
	}
	// Giving times without --all-day makes the event timed.
	if (changed("start") || changed("end")) && !changed("all-day") {
		in.AllDay = false
	}
	if changed("color") {
		in.Color = e.color
	}
	return in
}

func newAddCmd(flags *globalFlags) *cobra.Command {
	ef := &eventFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := model.ParseDate(ef.date)
			if err != nil {
				return err
			}
			_, st, closeStore, err := flags.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			var added model.Event
			cancel := st.Subscribe(func(events []model.Event) {
				if n := len(events); n > 0 {
					added = events[n-1]
				}
			})
			defer cancel()

			f := form.New(st)
			f.OpenCreate(date)
			if err := f.Submit(ef.apply(cmd, f.Defaults())); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), added.ID)
			return nil
		},
	}
	ef.register(cmd)
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newEditCmd(flags *globalFlags) *cobra.Command {
	ef := &eventFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an event; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, closeStore, err := flags.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			ev, ok := st.Get(args[0])
			if !ok {
				appLog.Warn("no event with that id; nothing changed", "id", args[0])
				return nil
			}
			if cmd.Flags().Changed("date") {
				if ev.Date, err = model.ParseDate(ef.date); err != nil {
					return err
				}
			}

			f := form.New(st)
			f.OpenEdit(ev)
			return f.Submit(ef.apply(cmd, f.Defaults()))
		},
	}
	ef.register(cmd)
	return cmd
}

func newRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an event",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, closeStore, err := flags.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			if _, ok := st.Get(args[0]); !ok {
				appLog.Warn("no event with that id; nothing removed", "id", args[0])
			}
			return st.Remove(args[0])
		},
	}
}

func newListCmd(flags *globalFlags) *cobra.Command {
	var month string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, closeStore, err := flags.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			events := st.Events()
			if month != "" {
				first, err := calendar.ParseMonth(month)
				if err != nil {
					return err
				}
				events = filterMonth(events, first)
			}
			events = byDay(events)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			return writeList(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Only events in this month (YYYY-MM)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func filterMonth(events []model.Event, first model.Date) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Date.SameMonth(first) {
			out = append(out, ev)
		}
	}
	return out
}

// byDay orders events by date, then in day-cell order.
func byDay(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	calendar.SortEvents(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func writeList(w io.Writer, events []model.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, ev := range events {
		when := "all-day"
		if t, ok := ev.Times(); ok {
			when = t.Start.String() + "-" + t.End.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ev.Date, when, ev.Color, ev.Title, ev.ID)
	}
	return tw.Flush()
}

func newGridCmd(flags *globalFlags) *cobra.Command {
	var month string
	var rows int
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the month grid with per-day event labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, st, closeStore, err := flags.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			m := calendar.NewMonth(grid.ParseWeekStart(conf.WeekStart), time.Now)
			if month != "" {
				first, err := calendar.ParseMonth(month)
				if err != nil {
					return err
				}
				m = m.Show(first)
			}
			days := m.Days(st.Events(), calendar.CellOptions{}, overflow.Size{Height: rows})
			return writeGrid(cmd.OutOrStdout(), m, days)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to print (YYYY-MM), default current")
	cmd.Flags().IntVar(&rows, "rows", 2, "Event lines per day before collapsing into +N")
	return cmd
}

func writeGrid(w io.Writer, m calendar.Month, days []*calendar.DayCell) error {
	fmt.Fprintln(w, m.Title())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(grid.WeekdayNames(m.WeekStart), "\t"))

	for _, week := range grid.Weeks(days) {
		lines := make([][]string, 7)
		height := 0
		for j, d := range week {
			num := fmt.Sprintf("%d", d.DayNumber())
			if !d.InMonth {
				num = "(" + num + ")"
			}
			r := d.List.Render()
			lines[j] = append([]string{num}, r.Items...)
			if r.Overflow != "" {
				lines[j] = append(lines[j], r.Overflow)
			}
			height = max(height, len(lines[j]))
		}
		for l := 0; l < height; l++ {
			cells := make([]string, 7)
			for j := range cells {
				if l < len(lines[j]) {
					cells[j] = lines[j][l]
				}
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}
	return tw.Flush()
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all events as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, closeStore, err := flags.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			body := ics.Export(st.Events(), time.Now())
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(out, body, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|url>",
		Short: "Merge events from an iCalendar file or feed; matching ids are replaced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, st, closeStore, err := flags.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			src := args[0]
			var body []byte
			if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
				fetcher := ics.NewFetcher(filepath.Join(dataDir(conf), "ics-cache"))
				body, _, err = fetcher.Fetch(cmd.Context(), src)
			} else {
				body, err = os.ReadFile(src)
			}
			if err != nil {
				return err
			}

			imported, err := ics.Import(body)
			if err != nil {
				return err
			}
			if err := st.Replace(ics.Merge(st.Events(), imported)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d events\n", len(imported))
			return nil
		},
	}
}

func newSnapshotCmd(flags *globalFlags) *cobra.Command {
	var url, out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the month page of a running server as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := flags.loadConfig()
			if err != nil {
				return err
			}
			opts := captureOptions(conf, url)
			if out != "" {
				opts.OutputPath = out
			}
			if err := capture.CaptureCalendarPNG(cmd.Context(), opts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), opts.OutputPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Page to capture (default: capture.url or the local server)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "PNG output path (default: capture.output)")
	return cmd
}

// captureOptions resolves the capture target, preferring url, then the
// configured URL, then the local server root.
func captureOptions(conf *config.Config, url string) capture.Options {
	if url == "" {
		url = conf.Capture.URL
	}
	if url == "" {
		url = "http://" + conf.Listen + "/"
	}
	return capture.Options{
		URL:        url,
		OutputPath: config.ExpandHome(conf.Capture.Output),
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
	}
}
