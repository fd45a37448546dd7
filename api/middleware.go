package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	qerrors "github.com/gcbaptista/forum-query-engine/internal/errors"
	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/services"
)

const requesterKey = "requester"

// RequestSizeLimitMiddleware limits the size of request bodies to prevent memory exhaustion
func RequestSizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	})
}

// CORSMiddleware adds CORS headers for cross-origin requests
func CORSMiddleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
}

// IdentityMiddleware resolves the requester from an optional HS256 bearer
// token whose subject is the participant ID. Requests without an
// Authorization header run anonymously; a header that does not verify is
// rejected with 401.
func IdentityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(requesterKey, services.Requester{})
			c.Next()
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			SendEngineError(c, qerrors.NewUnauthorizedError("expected a bearer token"))
			return
		}

		participantID, err := ParseParticipantToken(secret, strings.TrimSpace(token))
		if err != nil {
			SendEngineError(c, err)
			return
		}

		c.Set(requesterKey, services.Requester{ParticipantID: participantID})
		c.Set(logging.FieldParticipantID, strconv.FormatUint(uint64(participantID), 10))
		c.Next()
	}
}

// RequesterFrom returns the identity set by IdentityMiddleware, anonymous if none.
func RequesterFrom(c *gin.Context) services.Requester {
	if v, ok := c.Get(requesterKey); ok {
		if requester, ok := v.(services.Requester); ok {
			return requester
		}
	}
	return services.Requester{}
}

// ParseParticipantToken verifies a token signed with secret and returns its
// participant ID.
func ParseParticipantToken(secret, tokenString string) (uint32, error) {
	if secret == "" {
		return 0, qerrors.NewUnauthorizedError("token authentication is not configured")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, qerrors.NewUnauthorizedError("token has expired")
		}
		return 0, qerrors.NewUnauthorizedError("invalid token")
	}
	if !token.Valid {
		return 0, qerrors.NewUnauthorizedError("invalid token")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, qerrors.NewUnauthorizedError("token subject is not a participant ID")
	}
	return uint32(id), nil
}

// NewParticipantToken signs a token for participantID that expires after ttl.
func NewParticipantToken(secret string, participantID uint32, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(participantID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
