package redis

import "strings"

// Namespace prefixes every key this service writes.
const Namespace = "bq"

const (
	idempotencySpace = "idempotency"
	rateLimitSpace   = "rate_limit"
	sessionSpace     = "session"
	materialSpace    = "material"
)

// Key joins Namespace and the non-blank parts with ':'.
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(Namespace)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// RateLimitKey names the fixed-window counter for one policy and client.
func RateLimitKey(policy, client string) string {
	return Key(rateLimitSpace, policy, client)
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return Key(idempotencySpace, scope, id)
}

func (c *Client) IntakeSessionKey(sessionID string) string {
	return Key(sessionSpace, "intake", sessionID)
}

// MaterialKey is case-insensitive in name.
func (c *Client) MaterialKey(name string) string {
	return Key(materialSpace, strings.ToLower(name))
}
