// Command hailctl inspects hail feeds and sends notifications from the
// terminal, using the same adapters as the site API.
//
// Usage:
//
//	hailctl feed --date yesterday
//	hailctl near --zip 76102 --date 2024-05-09
//	hailctl census --lat 32.7555 --lon -97.3308
//	hailctl notify --title "Severe Weather Alert" --message "Take shelter now"
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/relayclient"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/spc"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/zippopotam"
	"github.com/couchcryptid/weather-spectrum/internal/config"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/enrich"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "hailctl",
		Short:         "Inspect SPC hail reports and send push notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(feedCmd())
	rootCmd.AddCommand(nearCmd())
	rootCmd.AddCommand(censusCmd())
	rootCmd.AddCommand(notifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: observability.NewWriterLogger(os.Stderr, cfg.LogLevel, "text")}, nil
}

func feedCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the hail reports for a date as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			events, err := e.fetch(cmd, date)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "today", "today, yesterday, or YYYY-MM-DD")
	return cmd
}

func nearCmd() *cobra.Command {
	var zip, date string

	cmd := &cobra.Command{
		Use:   "near",
		Short: "Print the hail reports within 50 miles of a ZIP code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := domain.ValidateZIP(zip); err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			loc, err := zippopotam.NewClient(e.cfg.ZIPAPIBaseURL, e.cfg.HTTPClientTimeout, nil).ResolveZIP(cmd.Context(), zip)
			if err != nil {
				return err
			}
			events, err := e.fetch(cmd, date)
			if err != nil {
				return err
			}
			near := domain.FilterWithinRadius(events, loc.Coordinates(), domain.ZIPRadiusMiles)
			e.logger.Info("radius search", "zip", zip, "city", loc.City, "state", loc.State, "total", len(events), "within", len(near))
			return printJSON(cmd.OutOrStdout(), near)
		},
	}

	cmd.Flags().StringVarP(&zip, "zip", "z", "", "5-digit ZIP code")
	cmd.Flags().StringVarP(&date, "date", "d", "today", "today, yesterday, or YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("zip")
	return cmd
}

func censusCmd() *cobra.Command {
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "census",
		Short: "Resolve the ZIP code and population around a coordinate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			en := enrich.New(enrich.Config{
				MapboxEnabled:      e.cfg.MapboxEnabled,
				MapboxToken:        e.cfg.MapboxToken,
				NominatimBaseURL:   e.cfg.NominatimBaseURL,
				NominatimUserAgent: e.cfg.NWSUserAgent,
				CensusBaseURL:      e.cfg.CensusBaseURL,
				CensusAPIKey:       e.cfg.CensusAPIKey,
				Timeout:            e.cfg.HTTPClientTimeout,
			}, nil, e.logger).Enrich(cmd.Context(), lat, lon)
			return printJSON(cmd.OutOrStdout(), en)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", domain.DefaultCenter.Lat, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", domain.DefaultCenter.Lon, "longitude")
	return cmd
}

func notifyCmd() *cobra.Command {
	var n domain.Notification
	var segment string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Broadcast a push notification through the relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if segment != "" {
				n.Segments = []string{segment}
			}
			if err := n.ValidateLengths(); err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			if e.cfg.RelayURL == "" {
				return errors.New("RELAY_URL is required")
			}
			client := relayclient.NewClient(e.cfg.RelayURL, e.cfg.RelaySecret, e.cfg.HTTPClientTimeout, nil, e.logger)

			res, err := client.Send(cmd.Context(), n.WithDefaults(""))
			if err != nil {
				return err
			}
			rec := domain.NewNotificationRecord("", n, res, nil, time.Now())
			if rec.Error != "" {
				return fmt.Errorf("relay rejected notification: %s", rec.Error)
			}
			e.logger.Info("notification sent", "status", rec.Status, "id", rec.ProviderID, "recipients", rec.Recipients)
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	cmd.Flags().StringVarP(&n.Title, "title", "t", "", "notification title")
	cmd.Flags().StringVarP(&n.Message, "message", "m", "", "notification message")
	cmd.Flags().StringVar(&n.URL, "url", "", "landing URL")
	cmd.Flags().StringVar(&segment, "segment", "", "target segment (default all subscribers)")
	return cmd
}

// fetch loads the SPC feed for a --date value.
func (e *env) fetch(cmd *cobra.Command, date string) ([]domain.HailEvent, error) {
	r, custom := domain.RangeCustom, date
	switch date {
	case "today":
		r, custom = domain.RangeToday, ""
	case "yesterday":
		r, custom = domain.RangeYesterday, ""
	}
	feedDate, err := domain.FeedDateFor(r, custom, time.Now().In(e.cfg.Location))
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q: %w", date, err)
	}

	client := spc.NewClient(e.cfg.SPCBaseURL, e.cfg.HTTPClientTimeout, nil, e.logger)
	e.logger.Debug("fetching feed", "url", client.FeedURL(feedDate))
	events, err := client.FetchFeed(cmd.Context(), feedDate)
	if err != nil {
		return nil, err
	}
	e.logger.Info("feed loaded", "date", feedDate, "events", len(events))
	return events, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
