package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"kayak-destinations/models"
)

// PrintLeaderboard formats the run report as a terminal leaderboard of the
// top destinations.
func PrintLeaderboard(w io.Writer, report *models.RunReport, top int) {
	border := strings.Repeat("═", 62)
	thin := strings.Repeat("─", 62)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	title := "BEST FRENCH DESTINATIONS"
	if report.WeatherDays > 0 {
		title = fmt.Sprintf("%s, NEXT %d DAYS", title, report.WeatherDays)
	}
	fmt.Fprintf(w, "║%s║\n", center(title, 62))
	fmt.Fprintf(w, "╚%s╝\n", border)

	fmt.Fprintf(w, "\n OVERVIEW\n%s\n", thin)
	if report.RunID != "" {
		fmt.Fprintf(w, "  Run                     : %s\n", report.RunID)
	}
	fmt.Fprintf(w, "  Destinations scored     : %d\n", len(report.Destinations))
	fmt.Fprintf(w, "  Hotels kept             : %d\n", report.Hotels)

	if len(report.Fallbacks) > 0 {
		fmt.Fprintf(w, "\n SCORE FALLBACKS\n%s\n", thin)
		reasons := make([]string, 0, len(report.Fallbacks))
		for r := range report.Fallbacks {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(w, "  %-25s %3d\n", r+":", report.Fallbacks[models.ScoreFailure(r)])
		}
	}

	if top <= 0 || top > len(report.Destinations) {
		top = len(report.Destinations)
	}
	if top > 0 {
		fmt.Fprintf(w, "\n TOP %d DESTINATIONS\n%s\n", top, thin)
		for _, d := range report.Destinations[:top] {
			bar := strings.Repeat("▓", int(d.DestinationScore*20+0.5))
			fmt.Fprintf(w, "  %2d. %-22s %.4f  %s\n", d.Rank, truncate(d.City.String(), 22), d.DestinationScore, bar)
			fmt.Fprintf(w, "      temp %s°C  rain %smm  price %s€\n", fmtOpt(d.TempMean), fmtOpt(d.RainSum), fmtOpt(d.PriceMean))
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", border)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
