package sitefinder

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/GreenHydrogen/H2-Backend/internal/mlproxy"
)

// SortKeys lists the accepted --sort values.
var SortKeys = []string{"score", "capacity", "distance", "cost", "water", "id"}

// View selects and orders the sites shown to the user.
type View struct {
	SortBy   string
	MinScore float64
	Limit    int
}

// Apply returns the sites that pass the filter, ordered by SortBy. The
// input slice is not modified.
func (v View) Apply(sites []mlproxy.Site) ([]mlproxy.Site, error) {
	less, err := comparator(v.SortBy)
	if err != nil {
		return nil, err
	}
	out := make([]mlproxy.Site, 0, len(sites))
	for _, s := range sites {
		if s.PredictedScore >= v.MinScore {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, less)
	if v.Limit > 0 && len(out) > v.Limit {
		out = out[:v.Limit]
	}
	return out, nil
}

func comparator(key string) (func(a, b mlproxy.Site) int, error) {
	switch key {
	case "", "score":
		return func(a, b mlproxy.Site) int { return cmp.Compare(b.PredictedScore, a.PredictedScore) }, nil
	case "capacity":
		return func(a, b mlproxy.Site) int { return cmp.Compare(b.Capacity, a.Capacity) }, nil
	case "distance":
		return func(a, b mlproxy.Site) int { return cmp.Compare(a.DistanceToRenewable, b.DistanceToRenewable) }, nil
	case "cost":
		return func(a, b mlproxy.Site) int { return cmp.Compare(a.LandCost, b.LandCost) }, nil
	case "water":
		return func(a, b mlproxy.Site) int { return cmp.Compare(b.WaterAvailability, a.WaterAvailability) }, nil
	case "id":
		return func(a, b mlproxy.Site) int { return strings.Compare(a.SiteID, b.SiteID) }, nil
	}
	return nil, fmt.Errorf("unknown sort key %q (want one of %s)", key, strings.Join(SortKeys, ", "))
}

func scoreColor(score float64) *color.Color {
	switch {
	case score >= 0.85:
		return color.New(color.FgGreen, color.Bold)
	case score >= 0.70:
		return color.New(color.FgGreen)
	case score >= 0.50:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed)
}

// Render writes a summary header and the site table.
func Render(w io.Writer, resp *mlproxy.PredictResponse, v View) error {
	sites, err := v.Apply(resp.RecommendedSites)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, resp.Message)
	if resp.MLMessage != "" {
		fmt.Fprintln(w, resp.MLMessage)
	}
	fmt.Fprintf(w, "Status: %s   Area: %.2f km²   Points: %d   Sites: %d (showing %d)\n\n",
		resp.PolygonAnalysis.Status, resp.PolygonAnalysis.AreaKm2, resp.PolygonAnalysis.PointCount,
		resp.TotalSitesFound, len(sites))

	if len(sites) == 0 {
		fmt.Fprintln(w, "No sites to show.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SITE\tLAT\tLON\tCAPACITY\tDIST\tWATER\tLAND COST\tSCORE\tCOMMENT")
	for _, s := range sites {
		// Color only the trailing column so tabwriter widths stay right.
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.1f\t%.1f\t%.2f\t%.0f\t%.3f\t%s\n",
			s.SiteID, s.Lat, s.Lon, s.Capacity, s.DistanceToRenewable,
			s.WaterAvailability, s.LandCost, s.PredictedScore,
			scoreColor(s.PredictedScore).Sprint(s.ScoreComment))
	}
	return tw.Flush()
}
