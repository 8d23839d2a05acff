package app

import (
	"errors"
	"strconv"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/logger"
	"campus_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler history fetch and fallback compose
type ChatHTTPHandler struct {
	messageUC *MessageUseCase
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(messageUC *MessageUseCase) *ChatHTTPHandler {
	return &ChatHTTPHandler{messageUC: messageUC}
}

// SendMessageReq fallback compose body
type SendMessageReq struct {
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// MessagesRes history payload
type MessagesRes struct {
	Status string `json:"status"`
	Data   struct {
		Messages []domain.Message `json:"messages"`
	} `json:"data"`
}

// MessageRes single message payload
type MessageRes struct {
	Status string `json:"status"`
	Data   struct {
		Message *domain.Message `json:"message"`
	} `json:"data"`
}

// ErrorRes error payload
type ErrorRes struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GetMessages recent room history
// @Summary Fetch chat history
// @Description Newest messages of the community room, oldest first
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessagesRes
// @Failure 401 {object} ErrorRes
// @Failure 500 {object} ErrorRes
// @Router /api/chat/messages [get]
func (h *ChatHTTPHandler) GetMessages(c *fiber.Ctx) error {
	msgs, err := h.messageUC.History(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}

	var res MessagesRes
	res.Status = "success"
	res.Data.Messages = msgs
	return c.Status(fiber.StatusOK).JSON(res)
}

// PostMessage fallback compose when the push channel is down
// @Summary Send a chat message
// @Description Persist and broadcast a message, used when the websocket is unavailable
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SendMessageReq true "message"
// @Success 201 {object} MessageRes
// @Failure 400 {object} ErrorRes
// @Failure 401 {object} ErrorRes
// @Failure 500 {object} ErrorRes
// @Router /api/chat/messages [post]
func (h *ChatHTTPHandler) PostMessage(c *fiber.Ctx) error {
	var req SendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, domain.ErrInvalidPayload)
	}

	memberID, _ := c.Locals(middlewares.TokenMemberID).(string)
	memberName, _ := c.Locals(middlewares.TokenMemberName).(string)

	msg, err := h.messageUC.Send(c.UserContext(), SendRequest{
		Author:  domain.Author{ID: memberID, Name: memberName},
		Text:    req.Text,
		ReplyTo: req.ReplyTo,
		Source:  domain.SourceHTTP,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	var res MessageRes
	res.Status = "success"
	res.Data.Message = msg
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Health liveness probe
// @Summary Health check
// @Tags Shared
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Server is running!"})
}

// DebugLogFlag toggle debug log flag
// @Summary Toggle Debug Log Flag
// @Description Enable or disable debug logging
// @Tags Shared
// @Param status query bool true "Debug status"
// @Success 200 {string} string "debug mode updated"
// @Failure 400 {string} string "Invalid status value"
// @Router /debug [post]
func DebugLogFlag(c *fiber.Ctx) error {
	status, err := strconv.ParseBool(c.Query("status"))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	logger.Log.SetDebugMode(status)
	logger.Log.Info("debug", zap.Bool("status", status))
	return c.SendString("debug mode is : " + strconv.FormatBool(status))
}

func errorResponse(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	status := fiber.StatusInternalServerError
	msg := "Something went wrong!"

	switch {
	case errors.As(err, &ve):
		status, msg = fiber.StatusBadRequest, ve.Msg
	case errors.Is(err, domain.ErrUnauthorized):
		status, msg = fiber.StatusUnauthorized, "Not authorized"
	case errors.Is(err, domain.ErrRateLimited):
		status, msg = fiber.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, domain.ErrStore):
		msg = "Failed to process chat request"
	}
	return c.Status(status).JSON(ErrorRes{Status: "error", Message: msg})
}
