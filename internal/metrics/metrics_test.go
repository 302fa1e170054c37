package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric はレジストリから名前とラベルが一致するメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestRecordRemoteWrite_LabelsResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRemoteWrite("menu", "add_menu_item", true)
	c.RecordRemoteWrite("menu", "add_menu_item", false)
	c.RecordRemoteWrite("menu", "add_menu_item", false)

	ok := findMetric(t, reg, "portal_remote_writes_total", map[string]string{"entity": "menu", "operation": "add_menu_item", "result": "ok"})
	if v := ok.GetCounter().GetValue(); v != 1 {
		t.Errorf("ok count = %v, want 1", v)
	}
	failed := findMetric(t, reg, "portal_remote_writes_total", map[string]string{"entity": "menu", "operation": "add_menu_item", "result": "failed"})
	if v := failed.GetCounter().GetValue(); v != 2 {
		t.Errorf("failed count = %v, want 2", v)
	}
}

func TestRecordCacheWrite(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheWrite("menuConfiguration", true)

	m := findMetric(t, reg, "portal_cache_writes_total", map[string]string{"key": "menuConfiguration", "result": "ok"})
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("cache writes = %v, want 1", v)
	}
}

func TestRecordRateLimitedAndValidation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRateLimited("add_news")
	c.RecordValidationFailure("news")
	c.RecordValidationFailure("news")

	if v := findMetric(t, reg, "portal_rate_limited_total", map[string]string{"operation": "add_news"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("rate limited = %v, want 1", v)
	}
	if v := findMetric(t, reg, "portal_validation_failures_total", map[string]string{"entity": "news"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("validation failures = %v, want 2", v)
	}
}

func TestRecordImportedItems(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordImportedItems(3, 2)
	c.RecordImportedItems(1, 0)

	if v := findMetric(t, reg, "portal_import_items_total", map[string]string{"result": "imported"}).GetCounter().GetValue(); v != 4 {
		t.Errorf("imported = %v, want 4", v)
	}
	if v := findMetric(t, reg, "portal_import_items_total", map[string]string{"result": "skipped"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("skipped = %v, want 2", v)
	}
}

func TestRecordFeedFetch_ObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFeedFetch(true, 150*time.Millisecond)
	c.RecordHTTPStatus(200)

	h := findMetric(t, reg, "portal_import_fetch_latency_seconds", nil)
	if h.GetHistogram().GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetHistogram().GetSampleCount())
	}
	if v := findMetric(t, reg, "portal_import_http_status_total", map[string]string{"status_code": "200"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("http status 200 = %v, want 1", v)
	}
}

func TestSetOnline(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetOnline(true)
	if v := findMetric(t, reg, "portal_remote_online", nil).GetGauge().GetValue(); v != 1 {
		t.Errorf("online = %v, want 1", v)
	}
	c.SetOnline(false)
	if v := findMetric(t, reg, "portal_remote_online", nil).GetGauge().GetValue(); v != 0 {
		t.Errorf("online = %v, want 0", v)
	}
}
