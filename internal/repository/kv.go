package repository

import "context"

// KVRepository 是一个简单的持久化键值存储。
// 客户端用它保存进入房间的授权记录和投票去重标记。
type KVRepository interface {
	// Get 返回值以及是否存在。
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
