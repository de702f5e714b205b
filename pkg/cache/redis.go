// backend/pkg/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"course-portal/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	coursesKey  = "courses:all"
	coursesTTL  = 10 * time.Minute
	positionTTL = 7 * 24 * time.Hour
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) SetCourses(ctx context.Context, courses []models.Course) error {
	data, err := json.Marshal(courses)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, coursesKey, data, coursesTTL).Err()
}

// GetCourses returns redis.Nil when the list is not cached.
func (c *RedisCache) GetCourses(ctx context.Context) ([]models.Course, error) {
	data, err := c.client.Get(ctx, coursesKey).Bytes()
	if err != nil {
		return nil, err
	}
	var courses []models.Course
	err = json.Unmarshal(data, &courses)
	return courses, err
}

func (c *RedisCache) InvalidateCourses(ctx context.Context) error {
	return c.client.Del(ctx, coursesKey).Err()
}

// RevokeToken denies a token id until its natural expiry.
func (c *RedisCache) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, "revoked:"+jti, 1, ttl).Err()
}

func (c *RedisCache) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, "revoked:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func positionKey(quizID, userID uuid.UUID) string {
	return fmt.Sprintf("quiz:%s:user:%s:position", quizID, userID)
}

// SetPosition remembers the question index a student was on.
func (c *RedisCache) SetPosition(ctx context.Context, quizID, userID uuid.UUID, index int) error {
	return c.client.Set(ctx, positionKey(quizID, userID), index, positionTTL).Err()
}

// GetPosition returns 0 when nothing was stored.
func (c *RedisCache) GetPosition(ctx context.Context, quizID, userID uuid.UUID) (int, error) {
	v, err := c.client.Get(ctx, positionKey(quizID, userID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (c *RedisCache) ClearPosition(ctx context.Context, quizID, userID uuid.UUID) error {
	return c.client.Del(ctx, positionKey(quizID, userID)).Err()
}
