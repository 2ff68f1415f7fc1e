package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/pulse/internal/analytics/client"
	"github.com/odyssey-erp/pulse/internal/dashboard"
	"github.com/odyssey-erp/pulse/internal/dashboard/ui"
	"github.com/odyssey-erp/pulse/internal/filters"
)

type FetchCmd struct{}

func NewFetchCmd() *FetchCmd {
	return &FetchCmd{}
}

func (c *FetchCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch analytics for a filter selection and print the dashboard as text",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGlobals(cmd)
			if err != nil {
				return err
			}
			values := url.Values{}
			for _, key := range []string{filters.KeyTime, filters.KeyCategory, filters.KeyStatus} {
				v, err := cmd.Flags().GetString(key)
				if err != nil {
					return fmt.Errorf("failed to get %s flag: %w", key, err)
				}
				values.Set(key, v)
			}
			retries, err := cmd.Flags().GetInt("retries")
			if err != nil {
				return fmt.Errorf("failed to get retries flag: %w", err)
			}
			set := filters.FromValues(values)
			logger := newLogger(cmd.ErrOrStderr(), g.verbose)

			fetcher := client.New(g.api, client.WithLogger(logger), client.WithRetries(retries, 0))
			v := dashboard.NewView(fetcher, dashboard.WithLogger(logger), dashboard.WithTimeout(g.timeout))
			defer v.Close()
			v.Mount(set)

			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			out, err := v.Wait(ctx)
			if err != nil {
				return fmt.Errorf("waiting for %s: %w", set, err)
			}
			vm, err := ui.Build(out, nil)
			if err != nil {
				return err
			}
			if err := ui.WriteText(cmd.OutOrStdout(), vm); err != nil {
				return err
			}
			if out.Kind == dashboard.KindFailed {
				if out.Err != nil {
					return fmt.Errorf("fetch failed: %s", out.Err.Message)
				}
				return fmt.Errorf("fetch failed")
			}
			return nil
		},
	}

	def := filters.Default()
	cmd.Flags().String(filters.KeyTime, string(def.Time), "Time range: all, today, week, month")
	cmd.Flags().String(filters.KeyCategory, string(def.Category), "Category: all, sales, marketing, support")
	cmd.Flags().String(filters.KeyStatus, string(def.Status), "Status: all, active, pending, completed")
	cmd.Flags().Int("retries", 0, "Retries for transient server errors")
	return cmd
}

type SetsCmd struct{}

func NewSetsCmd() *SetsCmd {
	return &SetsCmd{}
}

func (c *SetsCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "sets",
		Short: "List every filter combination with its canonical dashboard URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := newTable(cmd.OutOrStdout(), []string{"Time", "Category", "Status", "URL"})
			for _, set := range filters.AllSets() {
				table.Append([]string{string(set.Time), string(set.Category), string(set.Status), ui.Href(set)})
			}
			table.Render()
			return nil
		},
	}
}
