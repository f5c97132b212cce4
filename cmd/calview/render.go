package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"calview/internal/calendar"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/view"
)

var (
	renderDate   string
	renderMode   string
	renderMember string
	renderType   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch once and print the render model as JSON",
	Long:  "Computes one view (default: this month) from the configured ICS sources and prints the render model to stdout",
	RunE:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renderDate, "date", "", "Anchor date YYYY-MM-DD (default: today)")
	renderCmd.Flags().StringVar(&renderMode, "mode", "month", "View mode: day, week, month, agenda")
	renderCmd.Flags().StringVar(&renderMember, "member", "", "Only events with this attendee")
	renderCmd.Flags().StringVar(&renderType, "type", "", "Only events of this type")
}

func runRender(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	mode, err := view.ParseMode(renderMode)
	if err != nil {
		return err
	}
	a.engine.SetMode(mode)

	if renderDate != "" {
		d, err := model.ParseDate(renderDate)
		if err != nil {
			return err
		}
		if _, err := a.engine.SetAnchor(d); err != nil {
			return err
		}
	}
	if _, err := a.engine.SetFilter(view.FilterMember, renderMember); err != nil {
		return err
	}
	if _, err := a.engine.SetFilter(view.FilterType, renderType); err != nil {
		return err
	}

	// A failed fetch still renders an empty grid carrying fetch_error.
	if err := a.engine.Refresh(cmd.Context()); err != nil && !errors.Is(err, calendar.ErrFetchFailed) {
		return err
	}
	a.engine.Tick()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.engine.Render()); err != nil {
		appLog.Error("failed to encode render model", err)
		return err
	}
	return nil
}
