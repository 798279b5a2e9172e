package handlers_test

import (
	"testing"

	"github.com/yourusername/lyrics-catalog/internal/handlers"
	"github.com/yourusername/lyrics-catalog/internal/storetest"
)

func TestStats(t *testing.T) {
	e := newEnv(t)
	e.createSong(t, `{"title":"One","lyrics":"x"}`)
	e.createSong(t, `{"title":"Two","lyrics":"x"}`)
	e.do(t, "POST", "/api/admin/artists", `{"name":"A"}`)
	e.do(t, "POST", "/api/report", validReport)
	e.do(t, "POST", "/api/view/one", "", "CF-Connecting-IP", "1.2.3.4")

	resp := e.do(t, "GET", "/api/admin/stats", "")
	want := map[string]float64{"songs": 2, "artists": 1, "composers": 0, "pending_reports": 1, "total_views": 1}
	for key, n := range want {
		if resp.number(key) != n {
			t.Errorf("%s = %v, want %v", key, resp.body[key], n)
		}
	}
}

func TestReindex(t *testing.T) {
	if got := newEnv(t).do(t, "POST", "/api/admin/reindex", ""); got.status != 503 {
		t.Errorf("disabled = %d, want 503", got.status)
	}

	idx := &fakeIndex{}
	e := newEnv(t, handlers.WithIndex(idx))
	e.createSong(t, `{"title":"One","lyrics":"x"}`)
	e.createSong(t, `{"title":"Two","lyrics":"x"}`)

	resp := e.do(t, "POST", "/api/admin/reindex", "")
	if resp.status != 200 || resp.number("indexed") != 2 || idx.reindex != 2 {
		t.Errorf("reindex = %d %v (index saw %d)", resp.status, resp.body, idx.reindex)
	}
}

func TestBackups(t *testing.T) {
	if got := newEnv(t).do(t, "GET", "/api/admin/backups", ""); got.status != 503 {
		t.Errorf("disabled = %d, want 503", got.status)
	}

	b := &fakeBackups{}
	e := newEnv(t, handlers.WithBackups(b))
	e.createSong(t, `{"title":"One","lyrics":"x"}`)
	e.do(t, "POST", "/api/admin/artists", `{"name":"A"}`)
	if b.mutations != 2 {
		t.Errorf("mutations recorded = %d, want 2", b.mutations)
	}

	list := e.do(t, "GET", "/api/admin/backups", "")
	if len(list.list("backups")) != 1 {
		t.Errorf("backups = %v", list.body)
	}

	created := e.do(t, "POST", "/api/admin/backups", "")
	if created.status != 201 {
		t.Fatalf("create = %d %s", created.status, created.raw)
	}
	if info := created.body["backup"].(map[string]any); info["backup_type"] != "manual" {
		t.Errorf("backup = %v", info)
	}
}

func TestHealthCheck(t *testing.T) {
	e := newEnv(t)
	if got := e.do(t, "GET", "/api/health", ""); got.status != 200 || got.body["status"] != "healthy" {
		t.Errorf("healthy = %d %v", got.status, got.body)
	}

	e.store.Err = storetest.ErrInjected
	if got := e.do(t, "GET", "/api/health", ""); got.status != 503 || got.body["database"] != "unreachable" {
		t.Errorf("unhealthy = %d %v", got.status, got.body)
	}
}
