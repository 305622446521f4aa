package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// ViewCache stores rendered summary responses under stable view names
// so the engine can purge them by name when occupancy or capacity
// changes. It satisfies engine.Invalidator.
type ViewCache struct {
	store *cache.Cache
}

// NewViewCache creates a view cache. defaultTTL bounds staleness when
// no invalidation fires.
func NewViewCache(defaultTTL time.Duration) *ViewCache {
	return &ViewCache{store: cache.New(defaultTTL, 2*defaultTTL)}
}

// Invalidate drops the named views so the next read recomputes from
// the durable store.
func (v *ViewCache) Invalidate(views ...string) {
	for _, view := range views {
		v.store.Delete(view)
	}
}

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheView serves GET responses for one named view out of the cache
// until the view is invalidated or the TTL passes.
func CacheView(v *ViewCache, view string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		if resp, found := v.store.Get(view); found {
			cached := resp.(cachedResponse)
			for k, vals := range cached.headers {
				c.Writer.Header()[k] = vals
			}
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			v.store.Set(view, cachedResponse{
				status:  blw.Status(),
				headers: blw.Header().Clone(),
				body:    blw.body.Bytes(),
			}, ttl)
		}
	}
}
