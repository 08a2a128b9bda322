package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/digest"
)

// DigestHandler exposes the Log Digest Service over REST.
type DigestHandler struct {
	service *digest.Service
}

// NewDigestHandler constructs a DigestHandler.
func NewDigestHandler(service *digest.Service) *DigestHandler {
	return &DigestHandler{service: service}
}

// Get handles GET /api/sessions/:id/log-digest?last=&maxLength=.
func (h *DigestHandler) Get(c *gin.Context) {
	maxLength := atoiOrZero(c.Query("maxLength"))
	last := atoiOrZero(c.Query("last"))

	d, err := h.service.GetDigest(c.Request.Context(), c.Param("id"), maxLength, last)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Batch handles GET /api/sessions/log-digests?parentSessionId=|sessionIds=a,b.
func (h *DigestHandler) Batch(c *gin.Context) {
	maxLength := atoiOrZero(c.Query("maxLength"))
	last := atoiOrZero(c.Query("last"))

	if parentID := c.Query("parentSessionId"); parentID != "" {
		list, err := h.service.GetWorkerDigests(c.Request.Context(), parentID, maxLength, last)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
		return
	}

	ids := strings.Split(c.Query("sessionIds"), ",")
	digests := make([]digest.Digest, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		d, err := h.service.GetDigest(c.Request.Context(), id, maxLength, last)
		if err != nil {
			// One unreadable session must not fail the whole batch (spec.md §4.8).
			continue
		}
		digests = append(digests, d)
	}
	c.JSON(http.StatusOK, digests)
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
