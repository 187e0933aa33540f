// Command gatewayctl is a thin HTTP client over the mto-gateway admin API
// (spec.md §6): trigger and inspect sync runs, and manage the memory cache,
// without embedding any gateway component in-process. Grounded on the
// teacher's cmd/claudeops-style cobra command tree (github.com/joestump/
// claude-ops/cmd/claudeops/main.go): a root command plus one subcommand per
// operation, flags bound where the teacher binds them to viper.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

func serverBase() string {
	return viper.GetString("server")
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "gatewayctl",
		Short: "Operate an mto-gateway instance over its admin API",
	}
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "gateway base URL")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	viper.SetEnvPrefix("GATEWAYCTL")
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newTriggerSyncCmd(),
		newSyncStatusCmd(),
		newSyncConfigCmd(),
		newSyncHistoryCmd(),
		newCacheCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTriggerSyncCmd() *cobra.Command {
	var daysBack, chunkDays int
	var force bool
	cmd := &cobra.Command{
		Use:   "trigger-sync",
		Short: "Start a sync run",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if daysBack > 0 {
				q.Set("days_back", strconv.Itoa(daysBack))
			}
			if chunkDays > 0 {
				q.Set("chunk_days", strconv.Itoa(chunkDays))
			}
			if force {
				q.Set("force", "true")
			}
			return doRequest(http.MethodPost, "/api/sync/trigger", q, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&daysBack, "days-back", 0, "override the configured manual sync window")
	cmd.Flags().IntVar(&chunkDays, "chunk-days", 0, "override the configured chunk size")
	cmd.Flags().BoolVar(&force, "force", false, "accepted for interface symmetry; does not bypass mutual exclusion")
	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-status",
		Short: "Show the current sync progress record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/sync/status", nil, cmd.OutOrStdout())
		},
	}
}

// newSyncConfigCmd serves spec.md §6 UpdateSyncConfig(patch): every flag is
// optional, and only flags explicitly set on the command line are sent, so
// an unset flag never clobbers a tunable a different operator set earlier.
func newSyncConfigCmd() *cobra.Command {
	var autoSyncEnabled string
	var schedule []string
	var daysBack, manualDefault, manualMin, manualMax, chunkDays, batchSize, parallelChunks, retryCount int

	cmd := &cobra.Command{
		Use:   "sync-config",
		Short: "Patch the live sync configuration (schedule, windows, chunking)",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := map[string]interface{}{}
			if autoSyncEnabled != "" {
				v, err := strconv.ParseBool(autoSyncEnabled)
				if err != nil {
					return fmt.Errorf("--auto-sync-enabled must be true or false: %w", err)
				}
				patch["auto_sync_enabled"] = v
			}
			if len(schedule) > 0 {
				patch["auto_sync_schedule"] = schedule
			}
			setIfChanged(cmd, patch, "auto-sync-days-back", "auto_sync_days_back", daysBack)
			setIfChanged(cmd, patch, "manual-sync-default", "manual_sync_default_days", manualDefault)
			setIfChanged(cmd, patch, "manual-sync-min", "manual_sync_min_days", manualMin)
			setIfChanged(cmd, patch, "manual-sync-max", "manual_sync_max_days", manualMax)
			setIfChanged(cmd, patch, "chunk-days", "chunk_days", chunkDays)
			setIfChanged(cmd, patch, "batch-size", "batch_size", batchSize)
			setIfChanged(cmd, patch, "parallel-chunks", "parallel_chunks", parallelChunks)
			setIfChanged(cmd, patch, "retry-count", "retry_count", retryCount)

			body, err := json.Marshal(patch)
			if err != nil {
				return fmt.Errorf("failed to encode patch: %w", err)
			}
			return doRequestWithBody(http.MethodPatch, "/api/sync/config", body, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&autoSyncEnabled, "auto-sync-enabled", "", "true/false, unset leaves it unchanged")
	cmd.Flags().StringSliceVar(&schedule, "schedule", nil, "replacement list of HH:MM auto-sync times")
	cmd.Flags().IntVar(&daysBack, "auto-sync-days-back", 0, "default window for the scheduled sync")
	cmd.Flags().IntVar(&manualDefault, "manual-sync-default", 0, "default days_back for an unparameterized trigger")
	cmd.Flags().IntVar(&manualMin, "manual-sync-min", 0, "lower bound accepted by TriggerSync")
	cmd.Flags().IntVar(&manualMax, "manual-sync-max", 0, "upper bound accepted by TriggerSync")
	cmd.Flags().IntVar(&chunkDays, "chunk-days", 0, "default chunk width in days")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "upsert batch size")
	cmd.Flags().IntVar(&parallelChunks, "parallel-chunks", 0, "number of chunks synced concurrently")
	cmd.Flags().IntVar(&retryCount, "retry-count", 0, "retries per reader per chunk")
	return cmd
}

// setIfChanged copies value into patch[key] only when flagName was
// explicitly passed on the command line.
func setIfChanged(cmd *cobra.Command, patch map[string]interface{}, flagName, key string, value int) {
	if cmd.Flags().Changed(flagName) {
		patch[key] = value
	}
}

func newSyncHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sync-history",
		Short: "List recent terminal sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"limit": {strconv.Itoa(limit)}}
			return doRequest(http.MethodGet, "/api/sync/history", q, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of history entries to show")
	return cmd
}

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the memory cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache hit/miss counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/cache/stats", nil, cmd.OutOrStdout())
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodDelete, "/api/cache", nil, cmd.OutOrStdout())
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "reset-stats",
		Short: "Zero cache counters without dropping entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodPost, "/api/cache/reset-stats", nil, cmd.OutOrStdout())
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "hot",
		Short: "List the most frequently queried MTOs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/cache/hot", nil, cmd.OutOrStdout())
		},
	})

	cacheCmd.AddCommand(func() *cobra.Command {
		var mto string
		c := &cobra.Command{
			Use:   "invalidate",
			Short: "Drop one MTO's cache entry",
			RunE: func(cmd *cobra.Command, args []string) error {
				return doRequest(http.MethodDelete, "/api/cache/"+url.PathEscape(mto), nil, cmd.OutOrStdout())
			},
		}
		c.Flags().StringVar(&mto, "mto", "", "MTO to invalidate")
		_ = c.MarkFlagRequired("mto")
		return c
	}())

	cacheCmd.AddCommand(func() *cobra.Command {
		var count int
		var useHot bool
		c := &cobra.Command{
			Use:   "warm",
			Short: "Pre-populate the memory cache",
			RunE: func(cmd *cobra.Command, args []string) error {
				q := url.Values{"count": {strconv.Itoa(count)}}
				if useHot {
					q.Set("use_hot", "true")
				}
				return doRequest(http.MethodPost, "/api/cache/warm", q, cmd.OutOrStdout())
			},
		}
		c.Flags().IntVar(&count, "count", 20, "number of MTOs to warm")
		c.Flags().BoolVar(&useHot, "use-hot", false, "warm from the frequency histogram instead of recent syncs")
		return c
	}())

	return cacheCmd
}

// doRequest issues one HTTP call against the gateway and pretty-prints the
// JSON response body to out.
func doRequest(method, path string, query url.Values, out io.Writer) error {
	full := serverBase() + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return doRequestBody(method, full, nil, out)
}

// doRequestWithBody is doRequest for calls that carry a JSON body.
func doRequestWithBody(method, path string, body []byte, out io.Writer) error {
	return doRequestBody(method, serverBase()+path, body, out)
}

func doRequestBody(method, full string, body []byte, out io.Writer) error {
	req, err := http.NewRequest(method, full, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", full, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Fprintln(out, string(body))
		return nil
	}
	fmt.Fprintln(out, pretty.String())

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned %s", resp.Status)
	}
	return nil
}
