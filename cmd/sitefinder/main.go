package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GreenHydrogen/H2-Backend/internal/drawing"
	"github.com/GreenHydrogen/H2-Backend/internal/geo"
	"github.com/GreenHydrogen/H2-Backend/internal/sitefinder"
)

var (
	serverURL string
	timeout   time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "sitefinder",
		Short:         "Find green hydrogen sites inside a polygon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("H2_SERVER", "http://localhost:5000"), "backend base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 45*time.Second, "request timeout")

	root.AddCommand(analyzeCmd(), validateCmd(), healthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func readPolygon(args []string) (geo.Polygon, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, err
	}
	return sitefinder.ParseInput(data)
}

func analyzeCmd() *cobra.Command {
	var (
		name       string
		view       sitefinder.View
		asJSON     bool
		debounce   time.Duration
		store      bool
		geojsonOut string
	)
	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Send a polygon to the backend and list the recommended sites",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPolygon(args)
			if err != nil {
				return err
			}

			client := sitefinder.NewClient(serverURL, timeout)
			s := sitefinder.NewSession(name, client, sitefinder.SessionOptions{
				Debounce: debounce,
				Timeout:  timeout,
			})
			if err := s.Load(p); err != nil {
				return err
			}

			var out sitefinder.Outcome
			switch s.Collector().State() {
			case drawing.Analyzable, drawing.Closed:
				select {
				case out = <-s.Results:
				case <-time.After(debounce + timeout + time.Second):
					return errors.New("timed out waiting for analysis")
				}
			default:
				_, _, err := s.Analyze(cmd.Context())
				return err
			}
			if out.Err != nil {
				return out.Err
			}

			if store {
				stored, err := s.Submit()
				if err != nil {
					return err
				}
				if geojsonOut != "" {
					b, err := stored.GeoJSON(map[string]interface{}{
						"name":        name,
						"sites_found": out.Response.TotalSitesFound,
						"area_km2":    out.Response.PolygonAnalysis.AreaKm2,
					})
					if err != nil {
						return err
					}
					if err := os.WriteFile(geojsonOut, b, 0o644); err != nil {
						return err
					}
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out.Response)
			}
			return sitefinder.Render(cmd.OutOrStdout(), out.Response, view)
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "User Selected Polygon", "polygon name")
	f.StringVar(&view.SortBy, "sort", "score", "sort by score, capacity, distance, cost, water or id")
	f.Float64Var(&view.MinScore, "min-score", 0, "hide sites scoring below this")
	f.IntVar(&view.Limit, "limit", 0, "show at most this many sites (0 = all)")
	f.BoolVar(&asJSON, "json", false, "print the raw response as JSON")
	f.DurationVar(&debounce, "debounce", drawing.DefaultDebounce, "quiet period before analysis starts")
	f.BoolVar(&store, "store", false, "close and store the polygon after analysis")
	f.StringVar(&geojsonOut, "geojson-out", "", "with --store, write the polygon as GeoJSON here")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Check a polygon locally without calling the backend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPolygon(args)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			analysis := geo.ValidateForAnalysis(p.Open())
			storage := geo.ValidateForStorage(p)
			fmt.Fprintf(w, "Points:   %d (closed: %v)\n", len(p.Open()), p.Closed())
			fmt.Fprintf(w, "Area:     %.2f km²\n", geo.AreaKm2(p))
			fmt.Fprintf(w, "Analysis: %v - %s\n", analysis.Valid, analysis.Reason)
			fmt.Fprintf(w, "Storage:  %v - %s\n", storage.Valid, storage.Reason)
			if !analysis.Valid {
				return sitefinder.ErrClientValidation
			}
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the backend's view of the ML service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			raw, status, err := sitefinder.NewClient(serverURL, timeout).Health(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "HTTP %d %s\n", status, raw)
			if status != 200 {
				return fmt.Errorf("ML service unhealthy")
			}
			return nil
		},
	}
}
