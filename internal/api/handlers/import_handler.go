package handlers

import (
	"errors"
	"io"

	"fintrack/internal/dto"
	"fintrack/internal/parser"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ImportHandler struct {
	importer Importer
	logger   *zap.Logger
}

func NewImportHandler(importer Importer, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importer: importer,
		logger:   logger,
	}
}

// Upload godoc
// @Summary Upload a bank export
// @Description Parse a CSV, XLSX or OFX file, store its rows and propose a column mapping
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Statement file (.csv, .xlsx, .ofx)"
// @Security Bearer
// @Success 201 {object} dto.UploadResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/imports/upload [post]
func (h *ImportHandler) Upload(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}

	src, err := file.Open()
	if err != nil {
		return badRequest(c, "Failed to open file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return badRequest(c, "Failed to read file")
	}

	res, err := h.importer.Upload(c.Context(), userID, file.Filename, data)
	if err != nil {
		var parseErr *parser.ParseError
		switch {
		case errors.Is(err, parser.ErrUnsupportedFileType):
			return badRequest(c, "Unsupported file type. Use CSV, XLSX or OFX.")
		case errors.As(err, &parseErr):
			return badRequest(c, parseErr.Error())
		}
		h.logger.Error("Failed to create import job", zap.String("file", file.Filename), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create import job",
		})
	}

	preview := make([]map[string]string, len(res.Preview))
	for i, row := range res.Preview {
		preview[i] = row
	}

	return c.Status(fiber.StatusCreated).JSON(dto.UploadResponse{
		Job:         dto.NewImportJobResponse(res.Job),
		Headers:     res.Headers,
		Preview:     preview,
		Suggestions: dto.NewColumnSuggestions(res.Suggestions),
		Mapping:     res.Mapping,
	})
}

// SetMapping godoc
// @Summary Set the column mapping
// @Description Store the mapping and validate every row of the import against it
// @Tags imports
// @Accept json
// @Produce json
// @Param id path string true "Import job ID"
// @Param request body dto.SetMappingRequest true "Target field to column (or __STATIC__ value)"
// @Security Bearer
// @Success 200 {object} dto.ValidationResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/imports/{id}/mapping [post]
func (h *ImportHandler) SetMapping(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid import job ID")
	}

	var req dto.SetMappingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Mapping) == 0 {
		return badRequest(c, "Mapping is required")
	}

	summary, err := h.importer.SetMapping(c.Context(), userID, jobID, req.Mapping)
	if err != nil {
		return h.importError(c, "Failed to validate import", err)
	}

	return c.JSON(dto.ValidationResponse{
		Job:         dto.NewImportJobResponse(summary.Job),
		ValidRows:   summary.ValidRows,
		WarningRows: summary.WarningRows,
		InvalidRows: summary.InvalidRows,
		Invalid:     dto.NewRowIssues(summary.Invalid),
	})
}

// Execute godoc
// @Summary Execute an import
// @Description Create transactions from validated rows and start background classification
// @Tags imports
// @Accept json
// @Produce json
// @Param id path string true "Import job ID"
// @Param request body dto.ExecuteImportRequest false "Target account"
// @Security Bearer
// @Success 200 {object} dto.ExecuteImportResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/imports/{id}/execute [post]
func (h *ImportHandler) Execute(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid import job ID")
	}

	var req dto.ExecuteImportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	var accountID *uuid.UUID
	if req.AccountID != "" {
		id, err := uuid.Parse(req.AccountID)
		if err != nil {
			return badRequest(c, "Invalid account ID")
		}
		accountID = &id
	}

	res, err := h.importer.Execute(c.Context(), userID, jobID, accountID)
	if err != nil {
		return h.importError(c, "Failed to execute import", err)
	}

	return c.JSON(dto.ExecuteImportResponse{
		Message:               "Import completed successfully",
		Job:                   dto.NewImportJobResponse(res.Job),
		ImportedCount:         res.ImportedCount,
		ClassificationStarted: res.ClassificationStarted,
	})
}

// ListJobs godoc
// @Summary List import jobs
// @Description Newest first
// @Tags imports
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.ImportJobsResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/imports [get]
func (h *ImportHandler) ListJobs(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	jobs, err := h.importer.ListJobs(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list import jobs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list import jobs",
		})
	}

	resp := dto.ImportJobsResponse{Jobs: make([]dto.ImportJobResponse, len(jobs))}
	for i, job := range jobs {
		resp.Jobs[i] = dto.NewImportJobResponse(job)
	}
	return c.JSON(resp)
}

func (h *ImportHandler) importError(c *fiber.Ctx, msg string, err error) error {
	switch {
	case errors.Is(err, service.ErrImportJobNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Import job not found"})
	case errors.Is(err, service.ErrImportCompleted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Import job already completed"})
	case errors.Is(err, service.ErrNoValidRows):
		return badRequest(c, "No valid rows to import")
	case errors.Is(err, service.ErrInvalidMapping):
		return badRequest(c, err.Error())
	}

	h.logger.Error(msg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
	})
}
