package middleware

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
)

// extractUserID reads the account id named by an ownership rule from the request.
// A body read is restored so the handler can bind it again.
func extractUserID(c *gin.Context, source string, paramName string) string {
	switch source {
	case "path":
		return c.Param(paramName)
	case "query":
		return c.Query(paramName)
	case "header":
		return c.GetHeader(paramName)
	case "body":
		if c.Request.Body == nil {
			return ""
		}
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return ""
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		var bodyJSON map[string]any
		if err := json.Unmarshal(bodyBytes, &bodyJSON); err != nil {
			return ""
		}
		if id, ok := bodyJSON[paramName].(string); ok {
			return id
		}
	}
	return ""
}
