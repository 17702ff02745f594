package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// queryTime reads an RFC3339 timestamp or a YYYY-MM-DD date (UTC midnight).
// A missing parameter yields nil.
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, ErrValidation(key + " must be RFC3339 or YYYY-MM-DD")
	}
	return &t, nil
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
