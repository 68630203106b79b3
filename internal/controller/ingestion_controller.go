package controller

import (
	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/serverutils"
	"ragchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IIngestionController interface {
	RegisterRoutes(r fiber.Router)
	UploadFile(ctx *fiber.Ctx) error
	SubmitRepository(ctx *fiber.Ctx) error
	JobStatus(ctx *fiber.Ctx) error
}

type ingestionController struct {
	service service.IIngestionService
}

func NewIngestionController(service service.IIngestionService) IIngestionController {
	return &ingestionController{service: service}
}

func (c *ingestionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ingest/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/file", c.UploadFile)
	h.Post("/repository", c.SubmitRepository)
	h.Get("/jobs/:id", c.JobStatus)
}

func (c *ingestionController) UploadFile(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return serverutils.BadRequestError("missing file upload")
	}

	// An existing conversation may be targeted via a form field; absent
	// means a fresh conversation is created for the upload.
	var conversationId *uuid.UUID
	if raw := ctx.FormValue("conversation_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return serverutils.BadRequestError("invalid conversation id")
		}
		conversationId = &parsed
	}

	src, err := fileHeader.Open()
	if err != nil {
		return serverutils.BadRequestError("unable to read file upload")
	}
	defer src.Close()

	res, err := c.service.SubmitFile(ctx.Context(), userId, conversationId, fileHeader.Filename, fileHeader.Size, src)
	if err != nil {
		return respondQuotaExceeded(ctx, err)
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("File accepted for ingestion", res))
}

func (c *ingestionController) SubmitRepository(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.SubmitRepositoryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequestError("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SubmitRepository(ctx.Context(), userId, &req)
	if err != nil {
		return respondQuotaExceeded(ctx, err)
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Repository accepted for ingestion", res))
}

func (c *ingestionController) JobStatus(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	jobId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.BadRequestError("invalid job id")
	}

	res, err := c.service.GetJobStatus(ctx.Context(), userId, jobId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get job status", res))
}
