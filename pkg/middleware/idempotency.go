package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MarlyH/CorpsAPI-sub000/pkg/logger"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/response"
)

const (
	// IdempotencyKeyHeader is the header clients set to make a POST safe to retry
	IdempotencyKeyHeader = "Idempotency-Key"
	idempotencyKeyPrefix = "idempotency:"
	maxIdempotencyKeyLen = 128
)

// IdempotencyStatus is the state of a stored request
type IdempotencyStatus string

const (
	StatusProcessing IdempotencyStatus = "processing"
	StatusCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord is the Redis value stored per key
type IdempotencyRecord struct {
	Status       IdempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code,omitempty"`
	ResponseBody string            `json:"response_body,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RedisClient is the subset of go-redis used for idempotency records
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig configures the middleware
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL of completed records
	TTL time.Duration
	// ProcessingTTL bounds how long a crashed request blocks its key
	ProcessingTTL time.Duration
}

// Idempotency replays the stored response when a request is retried with
// the same Idempotency-Key. Requests without the header pass through, and
// Redis failures fail open.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = time.Minute
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, response.Failure("INVALID_IDEMPOTENCY_KEY", "idempotency key is too long"))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		ctx := c.Request.Context()
		userID, _ := GetUserID(c)
		redisKey := idempotencyKeyPrefix + userID + ":" + key
		hash := requestHash(c.Request.Method, c.Request.URL.Path, body)
		log := logger.FromContext(ctx)

		existing, err := getRecord(ctx, cfg.Redis, redisKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Warn("idempotency lookup failed, continuing without it", zap.Error(err))
			c.Next()
			return
		}
		if existing != nil {
			replay(c, existing, hash)
			return
		}

		record := &IdempotencyRecord{Status: StatusProcessing, RequestHash: hash, CreatedAt: time.Now()}
		claimed, err := setRecordNX(ctx, cfg.Redis, redisKey, record, cfg.ProcessingTTL)
		if err != nil {
			log.Warn("idempotency claim failed, continuing without it", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			if existing, _ = getRecord(ctx, cfg.Redis, redisKey); existing != nil {
				replay(c, existing, hash)
				return
			}
		}

		rw := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw

		c.Next()

		status := rw.Status()
		if status >= http.StatusInternalServerError {
			// let the client retry with the same key
			if err := cfg.Redis.Del(ctx, redisKey).Err(); err != nil {
				log.Warn("failed to release idempotency key", zap.Error(err))
			}
			return
		}

		record.Status = StatusCompleted
		record.ResponseCode = status
		record.ResponseBody = rw.body.String()
		if err := setRecord(ctx, cfg.Redis, redisKey, record, cfg.TTL); err != nil {
			log.Warn("failed to store idempotent response", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, rec *IdempotencyRecord, hash string) {
	switch {
	case rec.RequestHash != hash:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, response.Failure("IDEMPOTENCY_KEY_REUSED", "idempotency key already used with a different request"))
	case rec.Status == StatusProcessing:
		c.AbortWithStatusJSON(http.StatusConflict, response.Failure("REQUEST_IN_PROGRESS", "a request with this idempotency key is still being processed"))
	default:
		c.Header("Idempotent-Replayed", "true")
		c.Data(rec.ResponseCode, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		c.Abort()
	}
}

type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func getRecord(ctx context.Context, rc RedisClient, key string) (*IdempotencyRecord, error) {
	raw, err := rc.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func setRecordNX(ctx context.Context, rc RedisClient, key string, rec *IdempotencyRecord, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return rc.SetNX(ctx, key, string(data), ttl).Result()
}

func setRecord(ctx context.Context, rc RedisClient, key string, rec *IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return rc.Set(ctx, key, string(data), ttl).Err()
}
