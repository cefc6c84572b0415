package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultPageLimit applies when the request has no limit parameter.
	DefaultPageLimit = 50
	// MaxPageLimit bounds a single page of vaults, tokens or audit logs.
	MaxPageLimit = 100
)

// ParsePagination reads the offset and limit query parameters.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = queryInt(c, "offset", 0, 0, -1)
	if err != nil {
		return 0, 0, err
	}
	limit, err = queryInt(c, "limit", DefaultPageLimit, 1, MaxPageLimit)
	if err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

// queryInt parses name as an integer in [lowest, highest]. A negative highest
// leaves the value unbounded above.
func queryInt(c *gin.Context, name string, fallback, lowest, highest int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	switch {
	case err != nil || v < lowest:
		if highest < 0 {
			return 0, fmt.Errorf("invalid %s parameter: must be an integer >= %d", name, lowest)
		}
		return 0, fmt.Errorf("invalid %s parameter: must be between %d and %d", name, lowest, highest)
	case highest >= 0 && v > highest:
		return 0, fmt.Errorf("invalid %s parameter: must be between %d and %d", name, lowest, highest)
	}
	return v, nil
}
