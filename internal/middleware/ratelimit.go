package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit 按 IP 的固定窗口限流；rdb 为 nil 或 Redis 不可用时放行
func RateLimit(rdb *redis.Client, max int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || max <= 0 || window <= 0 {
			return c.Next()
		}

		ip := c.IP()
		if ip == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		windowKey := time.Now().UnixNano() / int64(window)
		key := fmt.Sprintf("license:rate_limit:%s:%d", ip, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.String("ip", ip), zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			if err := rdb.PExpire(ctx, key, window+time.Second).Err(); err != nil {
				log.Warn("rate limit expire failed", zap.String("key", key), zap.Error(err))
			}
		}

		if count > int64(max) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())+1))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
