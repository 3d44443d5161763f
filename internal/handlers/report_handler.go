package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/roadwatch-kerala/backend/internal/dto"
	"github.com/roadwatch-kerala/backend/internal/middleware"
	"github.com/roadwatch-kerala/backend/internal/models"
	"github.com/roadwatch-kerala/backend/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	report, err := h.reports.Submit(c.Context(), middleware.Identity(c), c.IP(), &req)
	if err != nil {
		return h.submitError(c, err)
	}

	if report.Status == models.StatusRejected {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ModerationRejectedResponse{
			Success: false,
			Message: "Report rejected by AI moderation",
			Reason:  report.Moderation.Reason,
			Flags:   []string(report.Moderation.Flags),
			Note:    "If you believe this is an error, please contact support",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SubmitReportResponse{
		Success:    true,
		Message:    "Report submitted and approved",
		ReportID:   report.ID,
		Confidence: report.Moderation.Confidence,
	})
}

func (h *ReportHandler) submitError(c *fiber.Ctx, err error) error {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: vErr.Message,
		})
	}

	if errors.Is(err, services.ErrDuplicateReport) {
		return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "You have already reported this vehicle multiple times today. Please wait before reporting again.",
			Reason:  "duplicate_prevention",
		})
	}

	var bErr *services.BanError
	if errors.As(err, &bErr) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Your account has been suspended",
			Reason:  bErr.Reason,
		})
	}

	slog.Error("report submission failed", "error", err, "ip", c.IP())
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	reports, total, err := h.reports.ListApproved(limit, offset)
	if err != nil {
		slog.Error("failed to list reports", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}

	return c.JSON(dto.ReportListResponse{
		Reports: reports,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (h *ReportHandler) ByPlate(c *fiber.Ctx) error {
	resp, err := h.reports.ListByPlate(c.Params("plateNumber"))
	if err != nil {
		slog.Error("failed to list reports by plate", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}
	return c.JSON(resp)
}

func (h *ReportHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.reports.Stats()
	if err != nil {
		slog.Error("failed to compute stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch stats",
		})
	}
	return c.JSON(stats)
}
