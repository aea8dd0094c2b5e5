package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"pipeline_board_backend/platform/config"
	"pipeline_board_backend/platform/logger"
)

// Client enqueues board tasks. It satisfies the pipeline service's
// TransferScheduler interface.
type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

// NewClient connects to the configured Redis instance.
func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  cfg.GetAsynqQueueName(),
		log:    log,
	}, nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// ScheduleTransferRecord enqueues a transfer-history record for the worker.
func (c *Client) ScheduleTransferRecord(ctx context.Context, leadID, fromStageID, toStageID uuid.UUID, movedBy string, assignedTo *uuid.UUID) error {
	task, err := NewLeadTransferTask(LeadTransferPayload{
		LeadID:      leadID,
		FromStageID: fromStageID,
		ToStageID:   toStageID,
		MovedBy:     movedBy,
		AssignedTo:  assignedTo,
		MovedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskLeadTransferRecord, err)
	}

	c.log.Debug("enqueued transfer record", "taskId", info.ID, "leadId", leadID)
	return nil
}

func redisClientOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
