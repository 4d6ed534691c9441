package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/maraichr/tablescan/internal/remediation"
)

const (
	StreamName = "tablescan:scan_jobs"
	GroupName  = "tablescan-workers"

	readBlock    = 5 * time.Second
	pendingBatch = 10
)

// ScanJob is the payload enqueued for worker processing.
type ScanJob struct {
	ReportID    uuid.UUID          `json:"report_id"`
	Units       []remediation.Unit `json:"units"`
	SubmittedBy string             `json:"submitted_by,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// Producer enqueues scan jobs to the Valkey stream.
type Producer struct {
	client valkey.Client
}

func NewProducer(client valkey.Client) *Producer {
	return &Producer{client: client}
}

func (p *Producer) Enqueue(ctx context.Context, job ScanJob) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	resp := p.client.Do(ctx, p.client.B().Xadd().
		Key(StreamName).Id("*").
		FieldValue().FieldValue("data", string(data)).
		Build())
	if err := resp.Error(); err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	id, err := resp.ToString()
	if err != nil {
		return "", fmt.Errorf("parse xadd response: %w", err)
	}
	return id, nil
}

// Consumer reads scan jobs from the Valkey stream. consumerID must stay the
// same across restarts of one worker so its unacknowledged jobs are read
// back on start. Jobs left unacknowledged for claimIdle by any consumer are
// claimed and retried; zero disables claiming.
type Consumer struct {
	client     valkey.Client
	consumerID string
	claimIdle  time.Duration
	logger     *slog.Logger
}

func NewConsumer(client valkey.Client, consumerID string, claimIdle time.Duration, logger *slog.Logger) *Consumer {
	return &Consumer{client: client, consumerID: consumerID, claimIdle: claimIdle, logger: logger}
}

// EnsureGroup creates the consumer group if it doesn't exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	resp := c.client.Do(ctx, c.client.B().XgroupCreate().
		Key(StreamName).Group(GroupName).Id("0").Mkstream().Build())
	if err := resp.Error(); err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create: %w", err)
	}
	return nil
}

// Consume blocks until a job is available, processes it via handler, and ACKs.
// Jobs delivered to this consumer but never ACKed are retried first; stale
// jobs of any consumer are claimed every claimIdle.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, ScanJob) error) error {
	c.drainPending(ctx, handler)
	c.claimStale(ctx, handler)
	lastClaim := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if now := time.Now(); c.claimDue(lastClaim, now) {
			c.claimStale(ctx, handler)
			lastClaim = now
		}

		resp := c.client.Do(ctx, c.client.B().Xreadgroup().
			Group(GroupName, c.consumerID).
			Count(1).Block(readBlock.Milliseconds()).
			Streams().Key(StreamName).Id(">").
			Build())

		if err := resp.Error(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// BLOCK timeouts come back as nil replies.
			if !valkey.IsValkeyNil(err) {
				c.logger.Warn("xreadgroup failed", slog.String("error", err.Error()))
			}
			continue
		}

		results, err := resp.AsXRead()
		if err != nil {
			continue
		}

		for _, messages := range results {
			for _, msg := range messages {
				c.processMessage(ctx, msg, handler)
			}
		}
	}
}

func (c *Consumer) drainPending(ctx context.Context, handler func(context.Context, ScanJob) error) {
	resp := c.client.Do(ctx, c.client.B().Xreadgroup().
		Group(GroupName, c.consumerID).
		Count(pendingBatch).
		Streams().Key(StreamName).Id("0").
		Build())

	if err := resp.Error(); err != nil {
		c.logger.Warn("drain pending failed", slog.String("error", err.Error()))
		return
	}

	results, err := resp.AsXRead()
	if err != nil {
		return
	}

	for _, messages := range results {
		for _, msg := range messages {
			c.logger.Info("recovering pending job", slog.String("id", msg.ID))
			c.processMessage(ctx, msg, handler)
		}
	}
}

func (c *Consumer) claimDue(last, now time.Time) bool {
	return c.claimIdle > 0 && now.Sub(last) >= c.claimIdle
}

// minIdleArg renders claimIdle as the XAUTOCLAIM min-idle-time argument.
func (c *Consumer) minIdleArg() string {
	ms := c.claimIdle.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return strconv.FormatInt(ms, 10)
}

// claimStale moves jobs idle for at least claimIdle to this consumer and
// retries them. It pages through the pending list until XAUTOCLAIM returns
// cursor 0-0.
func (c *Consumer) claimStale(ctx context.Context, handler func(context.Context, ScanJob) error) {
	if c.claimIdle <= 0 {
		return
	}

	start := "0-0"
	for ctx.Err() == nil {
		arr, err := c.client.Do(ctx, c.client.B().Xautoclaim().
			Key(StreamName).Group(GroupName).Consumer(c.consumerID).
			MinIdleTime(c.minIdleArg()).Start(start).Count(pendingBatch).
			Build()).ToArray()
		if err != nil {
			c.logger.Warn("xautoclaim failed", slog.String("error", err.Error()))
			return
		}
		if len(arr) < 2 {
			return
		}
		next, err := arr[0].ToString()
		if err != nil {
			return
		}
		entries, err := arr[1].AsXRange()
		if err != nil {
			c.logger.Warn("parse xautoclaim reply", slog.String("error", err.Error()))
			return
		}

		for _, msg := range entries {
			c.logger.Info("claimed stale job", slog.String("id", msg.ID))
			c.processMessage(ctx, msg, handler)
		}
		if next == "0-0" {
			return
		}
		start = next
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg valkey.XRangeEntry, handler func(context.Context, ScanJob) error) {
	job, err := decodeJob(msg)
	if err != nil {
		c.logger.Error("drop malformed job", slog.String("error", err.Error()), slog.String("id", msg.ID))
		c.ack(ctx, msg.ID)
		return
	}

	if err := handler(ctx, job); err != nil {
		c.logger.Error("handle job", slog.String("error", err.Error()),
			slog.String("id", msg.ID),
			slog.String("report_id", job.ReportID.String()))
		return
	}
	c.ack(ctx, msg.ID)
}

func decodeJob(msg valkey.XRangeEntry) (ScanJob, error) {
	var job ScanJob
	data, ok := msg.FieldValues["data"]
	if !ok {
		return job, fmt.Errorf("missing data field")
	}
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return job, fmt.Errorf("unmarshal job: %w", err)
	}
	if job.ReportID == uuid.Nil {
		return job, fmt.Errorf("job has no report id")
	}
	return job, nil
}

// ack runs even when ctx is already cancelled, so a job finished during
// shutdown is not handed out again.
func (c *Consumer) ack(ctx context.Context, msgID string) {
	resp := c.client.Do(context.WithoutCancel(ctx), c.client.B().Xack().
		Key(StreamName).Group(GroupName).Id(msgID).Build())
	if err := resp.Error(); err != nil {
		c.logger.Error("xack failed", slog.String("error", err.Error()), slog.String("id", msgID))
	}
}
