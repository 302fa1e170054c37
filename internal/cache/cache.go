// Package cache はPersistentCache（プロセス再起動後も残るローカルKVストア）を提供する。
// 値はJSONスナップショットとして丸ごと読み書きし、部分更新は行わない。
package cache

// スナップショットのキー
const (
	KeyMenuConfiguration = "menuConfiguration"
	KeyNewsBackup        = "news-items-backup"
	KeyCategoriesBackup  = "news-categories-backup"
)

// Store はスナップショットを保存するKVストアのインターフェース。
type Store interface {
	// Get はkeyの値をdstにデコードする。keyが存在しない場合はfalseを返す。
	Get(key string, dst any) (bool, error)

	// Put はvをエンコードしてkeyに保存する。既存の値は上書きされる。
	Put(key string, v any) error
}
