package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	UserRoleKeyPrefix   = "user:%d:role"
	CategoryKeyPrefix   = "category:%s"
	CategoryListKey     = "categories:all"
	ResponseKeyPrefix   = "resp:"
	ResponseKeyPattern  = ResponseKeyPrefix + "*"
	ResponseTTLFallback = time.Minute
)

const (
	UserRoleTTL = 5 * time.Minute
	CategoryTTL = 30 * time.Minute
)

func UserRoleKey(userID uint) string {
	return fmt.Sprintf(UserRoleKeyPrefix, userID)
}

func CategoryKey(ref string) string {
	return fmt.Sprintf(CategoryKeyPrefix, ref)
}

// Invalidate deletes keys, ignoring a nil client.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	rdb.Del(ctx, keys...)
}

func InvalidateUserRole(ctx context.Context, rdb *redis.Client, userID uint) {
	Invalidate(ctx, rdb, UserRoleKey(userID))
}
