package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/solarfocus/internal/engine"
	"github.com/rshade/solarfocus/internal/fusionsolar"
	"github.com/rshade/solarfocus/internal/metrics"
)

// alarmDateLayout is how alarm times are shown.
const alarmDateLayout = "02/01/2006 15:04"

// RenderMonthlyReport renders the styled summary of a monthly report.
func RenderMonthlyReport(r *engine.MonthlyReport, width int) string {
	if r == nil {
		return InfoStyle.Render("No report to display.")
	}

	var content strings.Builder

	content.WriteString(HeaderStyle.Render(fmt.Sprintf("%s %s", IconSun, strings.ToUpper(r.Station.Name))))
	content.WriteString("\n")
	content.WriteString(SubtleStyle.Render(fmt.Sprintf("%s · %s", r.Period.Label, r.Station.Code)))
	if r.Client != nil && r.Client.Name != "" && r.Client.Name != r.Station.Name {
		content.WriteString(SubtleStyle.Render(" · " + r.Client.Name))
	}
	content.WriteString("\n\n")

	content.WriteString(HeaderStyle.Render("GENERATION"))
	content.WriteString("\n")
	content.WriteString(labelRow("Total:", metrics.FormatKWh(r.Generation.TotalKWh)))
	content.WriteString("\n")
	content.WriteString(labelRow("Daily average:", metrics.FormatKWh(r.Generation.DailyAverageKWh)))
	content.WriteString("\n")
	content.WriteString(labelRow("Best / worst day:", fmt.Sprintf("%s / %s",
		metrics.FormatKWh(r.Generation.DailyMaxKWh), metrics.FormatKWh(r.Generation.DailyMinKWh))))
	content.WriteString("\n")
	content.WriteString(labelRow("Days generating:", fmt.Sprintf("%d of %d",
		r.Generation.DaysWithGeneration, r.Period.Days)))
	if r.Comparison != nil {
		content.WriteString("\n")
		content.WriteString(LabelStyle.Width(labelWidth).Render("vs " + r.Comparison.PreviousLabel + ":"))
		content.WriteString(RenderDelta(r.Comparison.DeltaKWh, r.Comparison.DeltaPercent))
	}
	content.WriteString("\n\n")

	content.WriteString(HeaderStyle.Render("PERFORMANCE"))
	content.WriteString("\n")
	content.WriteString(labelRow("Installed capacity:", metrics.FormatFloat(r.Station.CapacityKWp, 2)+" kWp"))
	content.WriteString("\n")
	content.WriteString(labelRow("Performance ratio:", metrics.FormatPercent(r.Performance.PerformanceRatio)))
	content.WriteString("\n")
	content.WriteString(labelRow("Specific yield:", metrics.FormatFloat(r.Performance.PeakSunHours, 2)+" kWh/kWp"))
	content.WriteString("\n")
	content.WriteString(labelRow("Availability:", metrics.FormatPercent(r.Performance.Availability)))
	content.WriteString("\n\n")

	content.WriteString(HeaderStyle.Render("SAVINGS"))
	content.WriteString("\n")
	content.WriteString(labelRow("This month:", money(r.Savings.Monthly, r.Currency)))
	content.WriteString("\n")
	content.WriteString(labelRow("Annualized:", money(r.Savings.Annual, r.Currency)))
	content.WriteString("\n\n")

	content.WriteString(HeaderStyle.Render(IconLeaf + " ENVIRONMENT"))
	content.WriteString("\n")
	content.WriteString(labelRow("CO2 avoided:", metrics.FormatFloat(r.Environment.CO2AvoidedKg, 2)+" kg"))
	content.WriteString("\n")
	content.WriteString(labelRow("Trees equivalent:", metrics.FormatFloat(r.Environment.TreesEquivalent, 1)))
	content.WriteString("\n\n")

	content.WriteString(renderSystem(r.System))

	return box(content.String(), width)
}

func renderSystem(sys engine.SystemInfo) string {
	var content strings.Builder

	content.WriteString(HeaderStyle.Render("SYSTEM"))
	content.WriteString("\n")
	content.WriteString(labelRow("Inverters:", fmt.Sprintf("%d", sys.InverterCount)))
	for _, inv := range sys.Inverters {
		content.WriteString("\n")
		content.WriteString(InfoStyle.Render(fmt.Sprintf("  • %s (%s)", inv.Name, inv.Serial)))
	}
	content.WriteString("\n")

	alarms := sys.Alarms
	if alarms.Total == 0 {
		content.WriteString(labelRow("Alarms:", ""))
		content.WriteString(OKStyle.Render("none"))
		return content.String()
	}

	content.WriteString(LabelStyle.Width(labelWidth).Render("Alarms:"))
	content.WriteString(ValueStyle.Render(fmt.Sprintf("%d", alarms.Total)))
	content.WriteString(InfoStyle.Render(" ("))
	content.WriteString(CriticalStyle.Render(fmt.Sprintf("%d critical", alarms.Critical)))
	content.WriteString(InfoStyle.Render(", "))
	content.WriteString(WarningStyle.Render(fmt.Sprintf("%d warnings", alarms.Warnings)))
	content.WriteString(InfoStyle.Render(")"))

	for _, a := range alarms.List {
		content.WriteString("\n  ")
		style := WarningStyle
		if a.Severity == engine.SeverityCritical {
			style = CriticalStyle
		}
		content.WriteString(style.Render(fmt.Sprintf("[%s]", a.Severity)))
		content.WriteString(" ")
		content.WriteString(ValueStyle.Render(a.Name))
		if !a.RaisedAt.IsZero() {
			content.WriteString(InfoStyle.Render(" " + a.RaisedAt.Format(alarmDateLayout)))
		}
	}
	return content.String()
}

// RenderDelta renders a month-over-month change with sign and arrow.
func RenderDelta(deltaKWh, deltaPercent float64) string {
	var icon string
	var color lipgloss.Color

	switch {
	case deltaKWh > 0:
		icon = IconArrowUp
		color = ColorOK
	case deltaKWh < 0:
		icon = IconArrowDown
		color = ColorWarning
	default:
		icon = IconArrowRight
		color = ColorMuted
	}

	sign := ""
	if deltaKWh > 0 {
		sign = "+"
	}
	text := fmt.Sprintf("%s%s kWh (%s) %s",
		sign, metrics.FormatFloat(deltaKWh, 2), metrics.FormatSignedPercent(deltaPercent), icon)
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
}

func money(amount float64, currency string) string {
	s, err := metrics.FormatMoney(amount, currency)
	if err != nil {
		return metrics.FormatFloat(amount, 2)
	}
	return s
}

// RenderStationList renders the stations visible to the account.
func RenderStationList(stations []fusionsolar.Station, width int) string {
	if len(stations) == 0 {
		return InfoStyle.Render("No stations found.")
	}

	var content strings.Builder
	content.WriteString(HeaderStyle.Render(fmt.Sprintf("STATIONS (%d)", len(stations))))

	codeWidth := len("Code")
	for _, s := range stations {
		codeWidth = max(codeWidth, len(s.Code))
	}

	content.WriteString("\n")
	content.WriteString(LabelStyle.Render(fmt.Sprintf("%-*s  %10s  %s", codeWidth, "Code", "kWp", "Name")))
	for _, s := range stations {
		content.WriteString("\n")
		content.WriteString(ValueStyle.Render(fmt.Sprintf("%-*s", codeWidth, s.Code)))
		content.WriteString(InfoStyle.Render(fmt.Sprintf("  %10s  ", metrics.FormatFloat(float64(s.Capacity), 2))))
		content.WriteString(ValueStyle.Render(s.Name))
	}
	return box(content.String(), width)
}

// RenderClientResults renders the outcome of a multi-client run.
func RenderClientResults(results []engine.ClientResult, width int) string {
	if len(results) == 0 {
		return InfoStyle.Render("No clients configured.")
	}

	var content strings.Builder
	content.WriteString(HeaderStyle.Render("CLIENTS"))

	failed := 0
	for _, r := range results {
		content.WriteString("\n")
		if r.Err != nil {
			failed++
			content.WriteString(CriticalStyle.Render("✗ "))
			content.WriteString(ValueStyle.Render(r.Name))
			content.WriteString(InfoStyle.Render(": " + r.Err.Error()))
			continue
		}
		content.WriteString(OKStyle.Render("✓ "))
		content.WriteString(ValueStyle.Render(r.Name))
		if r.Report != nil {
			content.WriteString(InfoStyle.Render("  " + metrics.FormatKWh(r.Report.Generation.TotalKWh)))
		}
	}

	content.WriteString("\n\n")
	summary := fmt.Sprintf("%d succeeded, %d failed", len(results)-failed, failed)
	if failed > 0 {
		content.WriteString(WarningStyle.Render(summary))
	} else {
		content.WriteString(OKStyle.Render(summary))
	}
	return box(content.String(), width)
}
