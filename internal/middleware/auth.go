package middleware

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authorization header required",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid token",
			})
			c.Abort()
			return
		}

		// user_id is stored as a decimal string in the claims
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if raw, exists := claims["user_id"]; exists {
				if idStr, ok := raw.(string); ok {
					if id, err := strconv.ParseUint(idStr, 10, 32); err == nil {
						c.Set("userID", uint(id))
					}
				}
			}
			if email, exists := claims["email"]; exists {
				if emailStr, ok := email.(string); ok {
					c.Set("userEmail", emailStr)
				}
			}
			if role, exists := claims["role"]; exists {
				if roleStr, ok := role.(string); ok {
					c.Set("userRole", roleStr)
				}
			}
		}

		c.Next()
	}
}
