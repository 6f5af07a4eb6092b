package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/annoreview/internal/services"
)

const auditBodyLimit = 2000

var sensitiveKeys = map[string]bool{
	"password":      true,
	"old_password":  true,
	"new_password":  true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
	"bind_password": true,
}

// AuditLog records write requests (POST/PUT/DELETE) to system_logs once the
// handler has answered. Only JSON bodies are captured, with secrets masked.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "DELETE" {
			c.Next()
			return
		}

		var body interface{}
		if c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			raw, _ := io.ReadAll(io.LimitReader(c.Request.Body, auditBodyLimit+1))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), c.Request.Body))
			body = auditBody(raw)
		}

		c.Next()

		userID := GetUserID(c)
		var uid *uint
		if userID > 0 {
			uid = &userID
		}
		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		services.LogInfo(module, action,
			formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status),
			uid, c.ClientIP(), c.Request.UserAgent(),
			map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"body":   body,
				"audit":  true,
			})
	}
}

// auditBody returns the masked JSON document, or a placeholder when the body
// was truncated or is not JSON.
func auditBody(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	if len(raw) > auditBodyLimit {
		return "[truncated]"
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "[unparsable]"
	}
	return maskSensitive(doc)
}

func maskSensitive(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if sensitiveKeys[strings.ToLower(k)] {
				val[k] = "***"
				continue
			}
			val[k] = maskSensitive(inner)
		}
	case []interface{}:
		for i := range val {
			val[i] = maskSensitive(val[i])
		}
	}
	return v
}

// parseRouteInfo derives module and action from a route pattern:
// "/api/projects/:id/tasks/upload" + POST gives ("projects", "create_upload").
func parseRouteInfo(fullPath, method string) (module, action string) {
	var static []string
	for _, seg := range strings.Split(strings.TrimPrefix(fullPath, "/api/"), "/") {
		if seg == "" || strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*") {
			continue
		}
		static = append(static, seg)
	}

	module = "unknown"
	resource := "unknown"
	if len(static) > 0 {
		module = static[0]
		resource = static[len(static)-1]
	}

	verb := strings.ToLower(method)
	switch method {
	case "POST":
		verb = "create"
	case "PUT":
		verb = "update"
	case "DELETE":
		verb = "delete"
	}
	return module, verb + "_" + strings.ReplaceAll(resource, "-", "_")
}

func formatAuditMessage(username, method, path string, status int) string {
	if username == "" {
		username = "anonymous"
	}
	outcome := "failed"
	if status >= 200 && status < 300 {
		outcome = "ok"
	}
	return fmt.Sprintf("[Audit] %s %s %s: %s (%d)", username, method, path, outcome, status)
}
