package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/task-manager/internal/config"
)

// ResponseCache caches successful authenticated reads in Redis, keyed per
// user so one user's entries can be dropped as soon as they change a task.
// A nil *ResponseCache, or one without a Redis client, caches nothing.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewResponseCache returns a cache using rdb, which may be nil.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) enabled() bool {
	return rc != nil && rc.cfg.Enabled && rc.rdb != nil
}

func (rc *ResponseCache) userPrefix(uid string) string {
	return fmt.Sprintf("%s:user:%s:", rc.cfg.Prefix, uid)
}

// genKey holds the user's cache generation.  Entries are keyed under the
// generation read before the handler ran, so bumping it orphans every
// entry of that user, including ones stored by reads still in flight.
func (rc *ResponseCache) genKey(uid string) string {
	return rc.userPrefix(uid) + "gen"
}

// key hashes the concrete request path and query under the user's prefix
// and generation.
func (rc *ResponseCache) key(uid, gen string, r *http.Request) string {
	sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%sg%s:%x", rc.userPrefix(uid), gen, sum[:])
}

// generation returns the user's current generation, "0" before the first
// invalidation.
func (rc *ResponseCache) generation(ctx context.Context, uid string) (string, error) {
	gen, err := rc.rdb.Get(ctx, rc.genKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// InvalidateUser makes every cached response of the given user
// unreachable.  Orphaned entries expire with their TTL.
func (rc *ResponseCache) InvalidateUser(ctx context.Context, id uint64) error {
	if !rc.enabled() {
		return nil
	}
	if err := rc.rdb.Incr(ctx, rc.genKey(strconv.FormatUint(id, 10))).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}

// cacheable reports whether method may be served from the cache.  Only
// safe methods qualify whatever CACHE_METHODS lists; replaying a stored
// 200 for a write would skip the write.
func (rc *ResponseCache) cacheable(method string) bool {
	method = strings.ToUpper(method)
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	return rc.cfg.Methods[method]
}

// Middleware must run after JWTAuth; anonymous requests are never cached.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return passThrough
	}
	ttl := rc.cfg.TTL
	maxBody := int64(rc.cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := userID(c)
			if uid == "anon" || !rc.cacheable(c.Request().Method) {
				return next(c)
			}

			ctx := c.Request().Context()
			gen, err := rc.generation(ctx, uid)
			if err != nil {
				slog.Warn("cache_generation_failed", "user_id", uid, "error", err)
				return next(c)
			}
			key := rc.key(uid, gen, c.Request())

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(status, c.Response().Header().Get(echo.HeaderContentType), body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			hdr.Del(echo.HeaderXRequestID)
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				slog.Warn("cache_store_failed", "key", key, "error", err)
			}
			return nil
		}
	}
}

// captureWriter copies the response body while forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
		cw.truncated = true
	} else if !cw.truncated {
		cw.buf.Write(b)
	}
	return cw.ResponseWriter.Write(b)
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
