package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"messmate/internal/domain"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondError maps the domain error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotRoomMember), errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

const dateLayout = "2006-01-02"

// roomIDQuery reads the required roomId query param, writing the error
// response itself when it is missing or malformed.
func roomIDQuery(c *gin.Context) (uint, bool) {
	v := c.Query("roomId")
	if v == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid roomId"})
		return 0, false
	}
	return uint(id), true
}

// parseDateRange reads optional startDate/endDate query params, falling back
// to the supplied defaults.
func parseDateRange(c *gin.Context, defStart, defEnd time.Time) (time.Time, time.Time, error) {
	start, end := defStart, defEnd
	if v := c.Query("startDate"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return start, end, err
		}
		start = t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return start, end, err
		}
		end = t
	}
	return start, end, nil
}
