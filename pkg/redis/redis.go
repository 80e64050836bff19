package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// SetClient 设置 Redis 客户端（由 internal/initial 调用）
func SetClient(c *redis.Client) {
	client = c
}

// Close 关闭 Redis 连接
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// IsConnected 检查 Redis 是否已连接
func IsConnected() bool {
	return client != nil
}

// checkClient 检查客户端是否可用
func checkClient() error {
	if client == nil {
		return fmt.Errorf("redis not connected")
	}
	return nil
}

// Get 获取字符串值
func Get(ctx context.Context, key string) (string, error) {
	if err := checkClient(); err != nil {
		return "", err
	}
	return client.Get(ctx, key).Result()
}

// Set 设置字符串值
func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := checkClient(); err != nil {
		return err
	}
	return client.Set(ctx, key, value, expiration).Err()
}

// Del 删除 key
func Del(ctx context.Context, keys ...string) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.Del(ctx, keys...).Result()
}

// Expire 设置过期时间
func Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	if err := checkClient(); err != nil {
		return false, err
	}
	return client.Expire(ctx, key, expiration).Result()
}

// HSet 设置 Hash 字段值
func HSet(ctx context.Context, key string, values ...interface{}) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.HSet(ctx, key, values...).Result()
}

// HGet 获取 Hash 字段值
func HGet(ctx context.Context, key, field string) (string, error) {
	if err := checkClient(); err != nil {
		return "", err
	}
	return client.HGet(ctx, key, field).Result()
}

// HGetAll 获取 Hash 所有字段和值
func HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := checkClient(); err != nil {
		return nil, err
	}
	return client.HGetAll(ctx, key).Result()
}

// HDel 删除 Hash 字段
func HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.HDel(ctx, key, fields...).Result()
}

// SAdd 向集合添加元素
func SAdd(ctx context.Context, key string, members ...interface{}) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.SAdd(ctx, key, members...).Result()
}

// SRem 从集合移除元素
func SRem(ctx context.Context, key string, members ...interface{}) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.SRem(ctx, key, members...).Result()
}

// SMembers 获取集合所有元素
func SMembers(ctx context.Context, key string) ([]string, error) {
	if err := checkClient(); err != nil {
		return nil, err
	}
	return client.SMembers(ctx, key).Result()
}

// SIsMember 检查元素是否在集合中
func SIsMember(ctx context.Context, key string, member interface{}) (bool, error) {
	if err := checkClient(); err != nil {
		return false, err
	}
	return client.SIsMember(ctx, key, member).Result()
}
