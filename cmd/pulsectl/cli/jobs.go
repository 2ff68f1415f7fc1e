package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/pulse/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		err = errors.Join(err, c.inspector.Close())
	}
	if c.client != nil {
		err = errors.Join(err, c.client.Close())
	}
	return err
}

// Trigger enqueues a supported job by name with default payload.
func (c *JobsCLI) Trigger(ctx context.Context, name string, invalidate bool) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	switch name {
	case jobs.TaskAnalyticsWarmup:
		return c.client.EnqueueAnalyticsWarmup(ctx, invalidate)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	return QueueStats{
		Queue:     info.Queue,
		Pending:   info.Pending,
		Active:    info.Active,
		Scheduled: info.Scheduled,
		Retry:     info.Retry,
	}, nil
}

type JobsCmd struct{}

func NewJobsCmd() *JobsCmd {
	return &JobsCmd{}
}

func (c *JobsCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}

	trigger := &cobra.Command{
		Use:   "trigger [job]",
		Short: "Enqueue a job, e.g. " + jobs.TaskAnalyticsWarmup,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGlobals(cmd)
			if err != nil {
				return err
			}
			invalidate, err := cmd.Flags().GetBool("invalidate")
			if err != nil {
				return fmt.Errorf("failed to get invalidate flag: %w", err)
			}
			helper := NewJobsCLI(g.redis)
			defer func() { _ = helper.Close() }()
			info, err := helper.Trigger(cmd.Context(), args[0], invalidate)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return err
		},
	}
	trigger.Flags().Bool("invalidate", false, "Bump the analytics cache version before warming")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGlobals(cmd)
			if err != nil {
				return err
			}
			helper := NewJobsCLI(g.redis)
			defer func() { _ = helper.Close() }()
			s, err := helper.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			writeStats(cmd.OutOrStdout(), s)
			return nil
		},
	}

	cmd.AddCommand(trigger, stats)
	return cmd
}

func writeStats(w io.Writer, s QueueStats) {
	table := newTable(w, []string{"Queue", "Pending", "Active", "Scheduled", "Retry"})
	table.Append([]string{s.Queue, strconv.Itoa(s.Pending), strconv.Itoa(s.Active), strconv.Itoa(s.Scheduled), strconv.Itoa(s.Retry)})
	table.Render()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	return table
}
