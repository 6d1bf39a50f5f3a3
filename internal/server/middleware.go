package server

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"taskboard/internal/ratelimit"
)

const userIDKey = "userID"

// Paths under this prefix are throttled by the stricter auth limiter.
const authPathPrefix = "/api/v1/auth"

// AuthMiddleware verifies the HS256 bearer token and stores the subject
// claim as the caller's user id.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing subject claim"})
			return
		}

		c.Set(userIDKey, sub)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RateLimitMiddleware throttles requests per caller identifier. CORS
// pre-flight and health checks pass through unlimited; auth-prefixed
// paths use the stricter limiter.
func RateLimitMiddleware(general, auth *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		if strings.HasSuffix(path, "/health") {
			c.Next()
			return
		}

		limiter := general
		if strings.HasPrefix(path, authPathPrefix) {
			limiter = auth
		}

		identifier := clientIdentifier(c)
		allowed, remaining := limiter.Allow(identifier)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(limiter.RetryAfter(identifier)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}

// clientIdentifier derives the rate-limit bucket key: a hash of the raw
// bearer credential when one is present, else the first forwarded-for
// entry, else the peer address, else a constant fallback bucket.
func clientIdentifier(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		sum := fnv.New64a()
		sum.Write([]byte(strings.TrimPrefix(header, "Bearer ")))
		return fmt.Sprintf("user:%x", sum.Sum64())
	}
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		return "ip:" + strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}
