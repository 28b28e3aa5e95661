package schema

import (
	"errors"

	"schema-manager/core/logger"
	"schema-manager/core/reconcile"
	"schema-manager/feature/schema/history"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the schema HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the schema routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/schema")
	group.Get("/plan", h.HandlePlan)
	group.Post("/apply", h.HandleApply)
	group.Post("/ensure", h.HandleEnsure)
	group.Get("/dump", h.HandleDump)
	group.Get("/runs", h.HandleRuns)
	group.Get("/runs/:id", h.HandleRun)
	group.Get("/snapshots", h.HandleSnapshots)
	group.Post("/snapshots", h.HandleCreateSnapshot)
}

// HandlePlan returns what an apply would change, without writing.
func (h *Handler) HandlePlan(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.Plan(c.Context())
	if err != nil {
		l.Error("Plan failed", zap.Error(err))
		return errorResponse(c, err)
	}
	return c.JSON(report)
}

// HandleApply reconciles the remote. Query: backup (default true), snapshot (default false).
func (h *Handler) HandleApply(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	opts := ApplyOptions{
		Backup:   c.QueryBool("backup", true),
		Snapshot: c.QueryBool("snapshot", false),
	}
	l.Info("Apply requested", zap.Bool("backup", opts.Backup), zap.Bool("snapshot", opts.Snapshot))

	report, err := h.service.Apply(c.Context(), opts)
	if err != nil {
		l.Error("Apply failed", zap.Error(err))
		return errorResponse(c, err)
	}
	return reportResponse(c, report)
}

// HandleEnsure applies the configured adjustments. Query: dry_run (default false).
func (h *Handler) HandleEnsure(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.Ensure(c.Context(), c.QueryBool("dry_run", false))
	if err != nil {
		l.Error("Ensure failed", zap.Error(err))
		return errorResponse(c, err)
	}
	return reportResponse(c, report)
}

// HandleDump returns the remote schema with secrets redacted. Query: system (default false).
func (h *Handler) HandleDump(c *fiber.Ctx) error {
	def, err := h.service.Dump(c.Context(), c.QueryBool("system", false))
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Dump failed", zap.Error(err))
		return errorResponse(c, err)
	}
	return c.JSON(def)
}

// HandleRuns lists recent runs. Query: limit (default 20).
func (h *Handler) HandleRuns(c *fiber.Ctx) error {
	runs, err := h.service.Runs(c.Context(), c.QueryInt("limit", 20))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"runs": runs})
}

// HandleRun returns one run with its per-collection results.
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	run, err := h.service.Run(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(run)
}

// HandleSnapshots lists stored snapshots.
func (h *Handler) HandleSnapshots(c *fiber.Ctx) error {
	infos, err := h.service.Snapshots(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"snapshots": infos})
}

// HandleCreateSnapshot uploads a dump of the remote schema. Query: name (optional).
func (h *Handler) HandleCreateSnapshot(c *fiber.Ctx) error {
	key, err := h.service.SaveSnapshot(c.Context(), c.Query("name"))
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Snapshot failed", zap.Error(err))
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key})
}

// reportResponse answers 200 when every collection succeeded and 207 otherwise.
func reportResponse(c *fiber.Ctx, report *reconcile.Report) error {
	status := fiber.StatusOK
	if report.Failed() > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(report)
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrBusy):
		status = fiber.StatusConflict
	case errors.Is(err, ErrHistoryDisabled), errors.Is(err, ErrSnapshotsDisabled):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, history.ErrRunNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrSecretMissing):
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
