package router

import (
	"context"

	"campus_chat_service/internal/chat/app"
	"campus_chat_service/pkg/config"
	"campus_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 注册聊天室相关的路由
func RegisterRoutes(r *fiber.App, cfg config.RoomConfig, chatWebsocket *app.ChatWebsocketHandler, chatHTTP *app.ChatHTTPHandler) {
	cfg.ApplyDefaults()

	// 不需驗證
	r.Get("/api/health", app.Health)
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Post("/debug", app.DebugLogFlag)

	api := r.Group("/api", limiter.New(limiter.Config{
		Max:        cfg.HTTPRateMax,
		Expiration: cfg.HTTPRateWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(app.ErrorRes{
				Status:  "error",
				Message: "Too many requests from this IP, please try again later.",
			})
		},
	}), middlewares.JWTMiddleware())

	api.Get("/chat/messages", chatHTTP.GetMessages)
	api.Post("/chat/messages", chatHTTP.PostMessage)

	r.Use("/ws", middlewares.JWTMiddleware(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}
