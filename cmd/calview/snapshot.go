package main

import (
	"github.com/spf13/cobra"

	"calview/internal/capture"
)

var (
	snapshotURL string
	snapshotOut string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture the rendered calendar page as PNG",
	Long:  "Loads the /calendar page in headless Chromium, waits for it to be ready and writes a PNG",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		url, out := a.cfg.Snapshot.URL, a.cfg.Snapshot.Output
		if snapshotURL != "" {
			url = snapshotURL
		}
		if snapshotOut != "" {
			out = snapshotOut
		}
		return capture.CalendarPNG(cmd.Context(), captureOptions(a, url, out))
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVar(&snapshotURL, "url", "", "Page to capture (default: snapshot.url from config)")
	snapshotCmd.Flags().StringVar(&snapshotOut, "out", "", "Output PNG path (default: snapshot.output from config)")
}
