package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	cacheHeader     = "X-Cache"
)

type responseMeta struct {
	start  time.Time
	fields map[string]interface{}
}

// WithResponseMeta stamps the request start so handlers can report timing
// and cache status in the envelope meta.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now(), fields: map[string]interface{}{}})
		c.Next()
	}
}

// SetCacheHit records whether the payload came from cache and mirrors it in
// the X-Cache header.
func SetCacheHit(c *gin.Context, hit bool) {
	if c == nil {
		return
	}
	SetMeta(c, "cache_hit", hit)
	if hit {
		c.Header(cacheHeader, "HIT")
	} else {
		c.Header(cacheHeader, "MISS")
	}
}

// SetMeta records an arbitrary response metadata field.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if m := lookupMeta(c, true); m != nil {
		m.fields[key] = value
	}
}

// ExtractMeta returns a copy of the recorded fields with processing_time_ms
// measured up to the call. It is nil when nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	m := lookupMeta(c, false)
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m.fields)+1)
	for k, v := range m.fields {
		out[k] = v
	}
	out["processing_time_ms"] = time.Since(m.start).Milliseconds()
	return out
}

func lookupMeta(c *gin.Context, create bool) *responseMeta {
	if c == nil {
		return nil
	}
	if raw, ok := c.Get(responseMetaKey); ok {
		if m, ok := raw.(*responseMeta); ok {
			return m
		}
	}
	if !create {
		return nil
	}
	m := &responseMeta{start: time.Now(), fields: map[string]interface{}{}}
	c.Set(responseMetaKey, m)
	return m
}
