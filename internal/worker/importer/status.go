package importer

import "time"

// FetchResult はHTTPステータスコードに基づく取得結果の分類。
type FetchResult int

const (
	// FetchResultOK は取得成功（200）。
	FetchResultOK FetchResult = iota
	// FetchResultNotModified はコンテンツ未変更（304）。
	FetchResultNotModified
	// FetchResultBackoff は一定時間取得を控えるべきステータス（404/410/401/403/429/5xx）。
	FetchResultBackoff
	// FetchResultUnknown は未知のステータスコード。
	FetchResultUnknown
)

const (
	// initialBackoff は指数バックオフの初回遅延。
	initialBackoff = 30 * time.Minute
	// maxBackoff は指数バックオフの最大遅延。
	maxBackoff = 12 * time.Hour
)

// ClassifyHTTPStatus はHTTPステータスコードを取得結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode == 200:
		return FetchResultOK
	case statusCode == 304:
		return FetchResultNotModified
	case statusCode == 404 || statusCode == 410:
		return FetchResultBackoff
	case statusCode == 401 || statusCode == 403:
		return FetchResultBackoff
	case statusCode == 429:
		return FetchResultBackoff
	case statusCode >= 500:
		return FetchResultBackoff
	default:
		return FetchResultUnknown
	}
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回30分、2倍ずつ増加、最大12時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// feedState は取り込み元フィードごとの取得状態。プロセス内のメモリのみに保持する。
type feedState struct {
	etag              string
	lastModified      string
	consecutiveErrors int
	nextAttemptAt     time.Time
}

// applyFailure は失敗回数を進めて次回の取得可能時刻を設定する。
func (s *feedState) applyFailure(now time.Time) {
	s.nextAttemptAt = now.Add(CalculateBackoff(s.consecutiveErrors))
	s.consecutiveErrors++
}

// applySuccess は失敗回数をリセットする。
func (s *feedState) applySuccess() {
	s.consecutiveErrors = 0
	s.nextAttemptAt = time.Time{}
}

// due はnowの時点で取得してよいかを返す。
func (s *feedState) due(now time.Time) bool {
	return !now.Before(s.nextAttemptAt)
}
