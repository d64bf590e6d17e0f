package handlers

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hostelhub/feeledger/internal/domain/models"
)

const hostelKey = "hostel_id"

// HostelContext reads the hostel a request acts on from the X-Hostel-ID header.
func HostelContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(models.HostelHeader), 10, 64)
		if err != nil || id <= 0 {
			abort(c, http.StatusBadRequest, "missing or invalid "+models.HostelHeader+" header")
			return
		}
		c.Set(hostelKey, id)
		c.Next()
	}
}

// BearerAuth rejects requests without the shared API token. An empty token
// disables the check.
func BearerAuth(token string) gin.HandlerFunc {
	expected := []byte("Bearer " + token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader("Authorization")), expected) != 1 {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

func hostelID(c *gin.Context) int64 {
	return c.GetInt64(hostelKey)
}
