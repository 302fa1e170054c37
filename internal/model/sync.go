package model

import (
	"strconv"
	"sync"
	"time"
)

// SyncStatus は直近の書き込み操作がRemoteStoreまで到達したかを表す。
// Remoteがfalseの場合、変更はメモリとPersistentCacheにのみ反映されている。
type SyncStatus struct {
	Operation string    `json:"operation"`
	Remote    bool      `json:"remote"`
	At        time.Time `json:"at"`
	Error     string    `json:"error,omitempty"`
}

// LocalIDGenerator はRemoteStoreが使えない場合のIDを採番する。
// 現在時刻のミリ秒値を文字列化し、同一ミリ秒での重複は1ずつ進めて回避する。
type LocalIDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewLocalIDGenerator はLocalIDGeneratorを生成する。nowがnilの場合はtime.Nowを使う。
func NewLocalIDGenerator(now func() time.Time) *LocalIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &LocalIDGenerator{now: now}
}

// Next は新しいローカルIDを返す。
func (g *LocalIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return strconv.FormatInt(id, 10)
}
