package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.RenderStarted(true)
	r.FileRendered("html", time.Second)
	r.RenderFailed()
	r.CacheHit()
	r.CacheMiss()
	r.ResourcesCopied(3)
}

func TestPrometheusRecorderExposesCounters(t *testing.T) {
	r := NewPrometheusRecorder()
	r.RenderStarted(false)
	r.RenderStarted(true)
	r.FileRendered("html", 50*time.Millisecond)
	r.CacheHit()
	r.CacheMiss()
	r.ResourcesCopied(2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`renderkit_renders_total{mode="full"} 1`,
		`renderkit_renders_total{mode="incremental"} 1`,
		`renderkit_files_rendered_total{format="html"} 1`,
		`renderkit_index_cache_hits_total 1`,
		`renderkit_index_cache_misses_total 1`,
		`renderkit_resources_copied_total 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
