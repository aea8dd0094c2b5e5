package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/repository"
	"pipeline_board_backend/platform/config"
	"pipeline_board_backend/platform/logger"
)

// Worker consumes board tasks from Redis and persists their effects.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   repository.Repository
	log    *logger.Logger
}

// NewWorker builds the asynq server and registers task handlers.
func NewWorker(cfg config.SchedulerConfig, repo repository.Repository, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
		Logger:      asynqLogger{log: log},
	})

	w := &Worker{server: server, mux: asynq.NewServeMux(), repo: repo, log: log}
	w.mux.HandleFunc(TaskLeadTransferRecord, w.handleLeadTransfer)
	return w, nil
}

// Run starts processing tasks and blocks until Shutdown is called.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker, waiting for in-flight tasks.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleLeadTransfer(ctx context.Context, task *asynq.Task) error {
	var payload LeadTransferPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads can never succeed; skip retries.
		return fmt.Errorf("unmarshal transfer payload: %v: %w", err, asynq.SkipRetry)
	}

	err := w.repo.RecordTransfer(ctx, domain.TransferRecord{
		LeadID:      payload.LeadID,
		FromStageID: payload.FromStageID,
		ToStageID:   payload.ToStageID,
		MovedBy:     payload.MovedBy,
		AssignedTo:  payload.AssignedTo,
		CreatedAt:   payload.MovedAt,
	})
	if err != nil {
		w.log.DatabaseError("record transfer", err)
		return err
	}

	w.log.Info("transfer recorded", "leadId", payload.LeadID, "toStageId", payload.ToStageID)
	return nil
}

// asynqLogger adapts the application logger to asynq's logging interface.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
