package cache

import "fmt"

func WorkspaceKey(tenantID string) string {
	return fmt.Sprintf("workspace:tenant:%s", tenantID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
