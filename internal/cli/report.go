package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/solarfocus/internal/config"
	"github.com/rshade/solarfocus/internal/engine"
	"github.com/rshade/solarfocus/internal/engine/batch"
	"github.com/rshade/solarfocus/internal/tui"
)

// Report command errors.
var (
	ErrNoTarget      = errors.New("either --station or --clients is required")
	ErrNoClients     = errors.New("no clients configured")
	ErrMonthRequired = errors.New("--month is required when --year is given")
	ErrClientsFailed = errors.New("client reports failed")
)

const reportFilePermissions = 0o600

// reportFlags holds the flags of the report command.
type reportFlags struct {
	station string
	month   int
	year    int
	json    string
	clients bool
	compare bool
}

func newReportCmd(a *app) *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the monthly report of a station",
		Long: `Fetches the monthly generation, daily series, devices and alarms of a station
and prints a summary with performance, savings and environmental impact.

Without --month and --year the previous month is reported. Months that have
not started yet are rejected.`,
		Example: `  # Previous month
  solarfocus report --station NE=33554432

  # A given month, compared with the month before, exported as JSON
  solarfocus report --station NE=33554432 --month 11 --year 2025 --compare --json nov.json

  # Every client in the config file
  solarfocus report --clients --month 11`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReport(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.station, "station", "", "station code (e.g. NE=33554432)")
	cmd.Flags().IntVar(&flags.month, "month", 0, "month to report, 1-12 (default previous month)")
	cmd.Flags().IntVar(&flags.year, "year", 0, "year of the month (default current year)")
	cmd.Flags().StringVar(&flags.json, "json", "", "also write the report data as JSON to this file")
	cmd.Flags().BoolVar(&flags.clients, "clients", false, "report every client listed in the config file")
	cmd.Flags().BoolVar(&flags.compare, "compare", false, "compare with the previous month")
	cmd.MarkFlagsMutuallyExclusive("station", "clients")

	return cmd
}

// resolvePeriod applies the defaults of --month and --year and rejects
// invalid or future months.
func resolvePeriod(now time.Time, month, year int) (int, time.Month, error) {
	switch {
	case month == 0 && year == 0:
		y, m := engine.PreviousMonth(now)
		return y, m, nil
	case month == 0:
		return 0, 0, ErrMonthRequired
	case year == 0:
		year = now.Year()
	}

	if err := engine.ValidatePeriod(year, time.Month(month), now); err != nil {
		return 0, 0, err
	}
	return year, time.Month(month), nil
}

func (a *app) runReport(cmd *cobra.Command, flags reportFlags) error {
	if flags.station == "" && !flags.clients {
		return ErrNoTarget
	}

	year, month, err := resolvePeriod(a.now(), flags.month, flags.year)
	if err != nil {
		return err
	}

	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd.Context())

	if flags.clients {
		return a.reportClients(cmd, s, year, month, flags)
	}
	return a.reportStation(cmd, s, year, month, flags)
}

func (a *app) reportStation(cmd *cobra.Command, s *session, year int, month time.Month, flags reportFlags) error {
	ctx := cmd.Context()
	extractor := a.newExtractor(s)

	client, known := a.cfg.FindClient(flags.station)

	extract := extractor.Monthly
	if flags.compare {
		extract = extractor.CompareWithPrevious
	}
	report, err := extract(ctx, flags.station, year, month, client.CapacityKWp)
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}
	if known {
		report.Client = &engine.ClientInfo{Name: client.Name, Email: client.Email, Phone: client.Phone}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.RenderMonthlyReport(report, outputWidth(out)))

	if flags.json != "" {
		if err := writeJSON(flags.json, report); err != nil {
			return err
		}
		cmd.Printf("Report data written to %s\n", flags.json)
	}
	return nil
}

func (a *app) reportClients(cmd *cobra.Command, s *session, year int, month time.Month, flags reportFlags) error {
	if len(a.cfg.Clients) == 0 {
		return fmt.Errorf("%w: add them under clients: in %s", ErrNoClients, a.cfg.ConfigPath())
	}

	results, err := a.newExtractor(s).Clients(
		cmd.Context(), engineClients(a.cfg.Clients), year, month, flags.compare,
		progressPrinter(cmd.ErrOrStderr()),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.RenderClientResults(results, outputWidth(out)))
	for _, r := range results {
		if r.Report != nil {
			fmt.Fprintln(out, tui.RenderMonthlyReport(r.Report, outputWidth(out)))
		}
	}

	if flags.json != "" {
		reports := make([]*engine.MonthlyReport, 0, len(results))
		for _, r := range results {
			if r.Report != nil {
				reports = append(reports, r.Report)
			}
		}
		if writeErr := writeJSON(flags.json, reports); writeErr != nil {
			return writeErr
		}
		cmd.Printf("Report data written to %s\n", flags.json)
	}

	if err != nil {
		return fmt.Errorf("client reports: %w", err)
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrClientsFailed, failed, len(results))
	}
	return nil
}

func engineClients(clients []config.ClientConfig) []engine.Client {
	out := make([]engine.Client, 0, len(clients))
	for _, c := range clients {
		out = append(out, engine.Client{
			StationCode: c.StationCode,
			Name:        c.Name,
			CapacityKWp: c.CapacityKWp,
			Email:       c.Email,
			Phone:       c.Phone,
		})
	}
	return out
}

// progressPrinter reports each client as it starts.
func progressPrinter(w io.Writer) batch.ProgressCallback {
	return func(snap batch.ProgressSnapshot) {
		if !snap.Running {
			return
		}
		fmt.Fprintf(w, "[%d/%d] %s\n", snap.Position(), snap.TotalItems, snap.CurrentLabel)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), reportFilePermissions); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
