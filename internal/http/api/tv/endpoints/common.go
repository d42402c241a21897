package endpoints

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryLimit reads ?limit, clamped to 1..max.
func queryLimit(ctx *gin.Context, def, max int) int {
	n, err := strconv.Atoi(ctx.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
