package controller

import (
	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/serverutils"
	"ragchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Models(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("/models", c.Models)
	h.Post("/conversations", c.Create)
	h.Get("/conversations", c.GetAll)
	h.Get("/conversations/:id", c.Show)
	h.Delete("/conversations/:id", c.Delete)
	h.Post("/conversations/:id/messages", c.SendMessage)
}

func (c *chatController) Models(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get models", c.service.ListModels()))
}

func (c *chatController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequestError("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateConversation(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create conversation", res))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.BadRequestError("invalid conversation id")
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequestError("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.Context(), userId, conversationId, &req)
	if err != nil {
		return respondQuotaExceeded(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *chatController) GetAll(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetConversations(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversations", res))
}

func (c *chatController) Show(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.BadRequestError("invalid conversation id")
	}

	res, err := c.service.GetConversation(ctx.Context(), userId, conversationId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversation", res))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.BadRequestError("invalid conversation id")
	}

	if err := c.service.DeleteConversation(ctx.Context(), userId, conversationId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete conversation", nil))
}
