package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	mattersPage   int
	mattersStatus string
	tasksPage     int
	tasksStatus   string
	tasksPriority string
)

var mattersCmd = &cobra.Command{
	Use:   "matters",
	Short: "List matters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listMatters()
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTasks()
	},
}

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Show firm KPI metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showKPIs()
	},
}

func init() {
	mattersCmd.Flags().IntVar(&mattersPage, "page", 1, "Page number")
	mattersCmd.Flags().StringVar(&mattersStatus, "status", "", "Filter by status (e.g. Open, Pending, Closed)")
	tasksCmd.Flags().IntVar(&tasksPage, "page", 1, "Page number")
	tasksCmd.Flags().StringVar(&tasksStatus, "status", "", "Filter by status (e.g. pending, incomplete, complete)")
	tasksCmd.Flags().StringVar(&tasksPriority, "priority", "", "Filter by priority (High, Normal, Low)")
}

func listMatters() error {
	q := url.Values{}
	q.Set("page", strconv.Itoa(mattersPage))
	if mattersStatus != "" {
		q.Set("status", mattersStatus)
	}

	body, err := apiGet("/api/matters?" + q.Encode())
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var resp struct {
		Data []struct {
			ID            int64  `json:"id"`
			DisplayNumber string `json:"display_number"`
			Description   string `json:"description"`
			Status        string `json:"status"`
			Client        *struct {
				Name string `json:"name"`
			} `json:"client"`
		} `json:"data"`
		TotalCount int `json:"total_count"`
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	for _, m := range resp.Data {
		client := ""
		if m.Client != nil {
			client = m.Client.Name
		}
		fmt.Printf("%-10d %-16s %-10s %-24s %s\n", m.ID, m.DisplayNumber, m.Status, client, m.Description)
	}
	fmt.Printf("\nPage %d of %d matters (%d per page)\n", resp.Page, resp.TotalCount, resp.PerPage)
	return nil
}

func listTasks() error {
	q := url.Values{}
	q.Set("page", strconv.Itoa(tasksPage))
	if tasksStatus != "" {
		q.Set("status", tasksStatus)
	}
	if tasksPriority != "" {
		q.Set("priority", tasksPriority)
	}

	body, err := apiGet("/api/tasks?" + q.Encode())
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var resp struct {
		Data []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Status   string `json:"status"`
			Priority string `json:"priority"`
			DueAt    string `json:"due_at"`
		} `json:"data"`
		TotalCount int `json:"total_count"`
		Page       int `json:"page"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	for _, t := range resp.Data {
		due := t.DueAt
		if due == "" {
			due = "-"
		}
		fmt.Printf("%-10d %-12s %-8s %-12s %s\n", t.ID, t.Status, t.Priority, due, t.Name)
	}
	fmt.Printf("\nPage %d of %d tasks\n", resp.Page, resp.TotalCount)
	return nil
}

func showKPIs() error {
	body, err := apiGet("/api/kpis")
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var resp struct {
		Metrics map[string]int `json:"metrics"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	names := make([]string, 0, len(resp.Metrics))
	for name := range resp.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%-28s %d\n", name, resp.Metrics[name])
	}
	return nil
}
