package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

var (
	feedStart string
	feedEnd   string
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the unified week feed",
	Long: `Show the unified week feed: Google Calendar events, Google Tasks,
and case-management calendar entries merged into one timeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showFeed()
	},
}

func init() {
	now := time.Now()
	feedCmd.Flags().StringVar(&feedStart, "start", now.Format("2006-01-02"), "Start date (YYYY-MM-DD)")
	feedCmd.Flags().StringVar(&feedEnd, "end", now.AddDate(0, 0, 6).Format("2006-01-02"), "End date (YYYY-MM-DD)")
}

func showFeed() error {
	q := url.Values{}
	q.Set("startDate", feedStart)
	q.Set("endDate", feedEnd)

	body, err := apiGet("/api/calendar?" + q.Encode())
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var resp struct {
		Items []struct {
			Title    string `json:"title"`
			Type     string `json:"type"`
			Date     string `json:"date"`
			Time     string `json:"time"`
			Location string `json:"location"`
			Source   string `json:"source"`
		} `json:"items"`
		Meta struct {
			Failed int `json:"failed_sources"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(resp.Items) == 0 {
		fmt.Println("Nothing scheduled for this range.")
	}
	for _, item := range resp.Items {
		line := fmt.Sprintf("%s %s  [%s] %s", item.Date, item.Time, item.Type, item.Title)
		if item.Location != "" {
			line += " @ " + item.Location
		}
		fmt.Println(line)
	}
	if resp.Meta.Failed > 0 {
		fmt.Printf("\nWarning: %d source(s) failed; the feed may be incomplete\n", resp.Meta.Failed)
	}
	return nil
}
