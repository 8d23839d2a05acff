package middlewares

import (
	"strings"

	t_token "campus_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenMemberName display name from token, set c.locals name
	TokenMemberName = "MemberName"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
)

// JWTMiddleware validates JWT from the Authorization header, the auth query or the auth cookie
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := bearer(c.Get(fiber.HeaderAuthorization))

		// 瀏覽器 websocket 無法帶 header，改從查詢參數或 Cookie 取得
		if tokenStr == "" {
			tokenStr = c.Query(QueryToken)
		}
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenMemberName, claims.Name)
		c.Locals(TokenRole, claims.Role)

		return c.Next()
	}
}

func bearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
