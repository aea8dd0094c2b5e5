// Package pipelines wires the pipeline board bounded context: sales pipelines,
// their ordered stages, and the lead cards that move between them.
package pipelines

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"pipeline_board_backend/internal/events"
	apphttp "pipeline_board_backend/internal/http"
	"pipeline_board_backend/internal/pipelines/handler"
	"pipeline_board_backend/internal/pipelines/repository"
	"pipeline_board_backend/internal/pipelines/service"
	"pipeline_board_backend/platform/logger"
	"pipeline_board_backend/platform/validator"
)

// Module bundles the pipeline board feature.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// NewModule assembles the pipeline board module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)

	return &Module{
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "pipelines" }

// Service exposes the board service for cross-module wiring.
func (m *Module) Service() *service.Service { return m.svc }

// SetTransferScheduler wires asynchronous transfer-history recording.
func (m *Module) SetTransferScheduler(scheduler service.TransferScheduler) {
	m.svc.SetTransferScheduler(scheduler)
}

// SetSummaryCache wires the Redis summary cache.
func (m *Module) SetSummaryCache(cache service.SummaryCache) {
	m.svc.SetSummaryCache(cache)
}

// RegisterRoutes mounts the pipeline board endpoints. Everything requires an
// authenticated caller with an organization claim.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	pipelines := ctx.Protected.Group("/pipelines")
	{
		pipelines.GET("", m.handler.ListPipelines)
		pipelines.POST("", m.handler.CreatePipeline)
		pipelines.GET("/:id", m.handler.GetPipeline)
		pipelines.DELETE("/:id", m.handler.DeletePipeline)
		pipelines.GET("/:id/summary", m.handler.GetSummary)
		pipelines.GET("/:id/stages", m.handler.ListStages)
	}

	stages := ctx.Protected.Group("/stages")
	{
		stages.POST("", m.handler.CreateStage)
		stages.PUT("/:id", m.handler.UpdateStage)
		stages.DELETE("/:id", m.handler.DeleteStage)
		stages.GET("/:id/leads", m.handler.ListLeads)
	}

	leads := ctx.Protected.Group("/leads")
	{
		leads.POST("", m.handler.CreateLead)
		leads.GET("/:id", m.handler.GetLead)
		leads.PUT("/:id", m.handler.UpdateLead)
		leads.DELETE("/:id", m.handler.DeleteLead)
		leads.PATCH("/:id/move", m.handler.MoveLead)
		leads.GET("/:id/transfers", m.handler.ListTransfers)
	}
}
