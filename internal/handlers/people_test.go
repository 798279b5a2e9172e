package handlers_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/yourusername/lyrics-catalog/internal/handlers"
)

func TestCreatePerson_Kinds(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		path     string
		conflict string
	}{
		{"/api/admin/artists", "An artist with this slug"},
		{"/api/admin/composers", "A composer with this slug"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			first := e.do(t, "POST", tt.path, `{"name":"Fanny Crosby","social_links":[" https://example.com ",""]}`)
			if first.status != 201 || first.body["slug"] != "fanny-crosby" {
				t.Fatalf("create = %d %v", first.status, first.body)
			}
			again := e.do(t, "POST", tt.path, `{"name":"Fanny  Crosby"}`)
			if again.status != 409 || !strings.Contains(again.errorMessage(), tt.conflict) {
				t.Errorf("duplicate = %d %q", again.status, again.errorMessage())
			}
			if missing := e.do(t, "POST", tt.path, `{"bio":"no name"}`); missing.status != 400 {
				t.Errorf("missing name = %d, want 400", missing.status)
			}
		})
	}
}

func TestGetPerson_IncludesSongs(t *testing.T) {
	e := newEnv(t)
	artist := e.do(t, "POST", "/api/admin/artists", `{"name":"Hillsong"}`)
	artistID := int64(artist.number("id"))
	e.createSong(t, fmt.Sprintf(`{"title":"Oceans","lyrics":"x","artist_id":%d}`, artistID))
	e.createSong(t, `{"title":"Unrelated","lyrics":"y"}`)

	resp := e.do(t, "GET", "/api/artist/hillsong", "")
	if resp.status != 200 {
		t.Fatalf("status = %d", resp.status)
	}
	person := resp.body["artist"].(map[string]any)
	if person["name"] != "Hillsong" || person["song_count"] != float64(1) {
		t.Errorf("artist = %v", person)
	}
	songs := resp.list("songs")
	if len(songs) != 1 || songs[0].(map[string]any)["artist_name"] != "Hillsong" {
		t.Errorf("songs = %v", songs)
	}

	if got := e.do(t, "GET", "/api/composer/hillsong", ""); got.status != 404 {
		t.Errorf("wrong kind = %d, want 404", got.status)
	}
}

func TestDeleteArtist_ClearsSongReference(t *testing.T) {
	e := newEnv(t)
	artist := e.do(t, "POST", "/api/admin/artists", `{"name":"Hillsong"}`)
	artistID := int64(artist.number("id"))
	e.createSong(t, fmt.Sprintf(`{"title":"Oceans","lyrics":"x","artist_id":%d}`, artistID))

	if got := e.do(t, "DELETE", fmt.Sprintf("/api/admin/artist/%d", artistID), ""); got.status != 200 {
		t.Fatalf("delete = %d %s", got.status, got.raw)
	}

	song, _ := e.store.GetSongBySlug(context.Background(), "oceans")
	if song == nil {
		t.Fatal("song must survive its artist")
	}
	if song.ArtistID != nil || song.ArtistName != nil {
		t.Errorf("artist reference not cleared: %v %v", song.ArtistID, song.ArtistName)
	}

	if got := e.do(t, "DELETE", fmt.Sprintf("/api/admin/artist/%d", artistID), ""); got.status != 404 {
		t.Errorf("second delete = %d, want 404", got.status)
	}
}

func TestUpdatePerson(t *testing.T) {
	e := newEnv(t)
	id := int64(e.do(t, "POST", "/api/admin/composers", `{"name":"Isaac Watts"}`).number("id"))
	e.do(t, "POST", "/api/admin/composers", `{"name":"Charles Wesley"}`)

	path := fmt.Sprintf("/api/admin/composer/%d", id)
	if got := e.do(t, "PUT", path, `{"name":"Isaac Watts","bio":"hymn writer"}`); got.status != 200 {
		t.Errorf("self update = %d %s", got.status, got.raw)
	}
	if got := e.do(t, "PUT", path, `{"name":"Charles Wesley"}`); got.status != 409 {
		t.Errorf("clash = %d, want 409", got.status)
	}
	if got := e.do(t, "PUT", "/api/admin/composer/404", `{"name":"Nobody"}`); got.status != 404 {
		t.Errorf("missing = %d, want 404", got.status)
	}

	got := e.do(t, "GET", path, "")
	if c := got.body["composer"].(map[string]any); c["bio"] != "hymn writer" {
		t.Errorf("composer = %v", c)
	}
}

func TestListPeople_Query(t *testing.T) {
	e := newEnv(t)
	for _, name := range []string{"Alpha", "Beta", "Alphabet"} {
		e.do(t, "POST", "/api/admin/artists", fmt.Sprintf(`{"name":%q}`, name))
	}

	resp := e.do(t, "GET", "/api/artists?q=alpha", "")
	if resp.number("total") != 2 || len(resp.list("artists")) != 2 {
		t.Errorf("filtered artists = %v", resp.body)
	}
	if all := e.do(t, "GET", "/api/artists", ""); all.number("total") != 3 {
		t.Errorf("all artists = %v", all.body)
	}
}

func TestOwners(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, "POST", "/api/admin/copyright-owners", `{"name":"Capitol CMG","legal_name":"Capitol CMG Publishing","email":"rights@example.com"}`)
	if resp.status != 201 || resp.body["slug"] != "capitol-cmg" {
		t.Fatalf("create = %d %v", resp.status, resp.body)
	}
	id := int64(resp.number("id"))

	if bad := e.do(t, "POST", "/api/admin/copyright-owners", `{"name":"X","email":"not-an-email"}`); bad.status != 400 {
		t.Errorf("bad email = %d, want 400", bad.status)
	}
	if dup := e.do(t, "POST", "/api/admin/copyright-owners", `{"name":"Capitol CMG"}`); dup.status != 409 {
		t.Errorf("duplicate = %d, want 409", dup.status)
	}

	e.createSong(t, fmt.Sprintf(`{"title":"Way Maker","lyrics":"x","copyright_owner_id":%d}`, id))

	byLegal := e.do(t, "GET", "/api/copyright-owners?q=publishing", "")
	if len(byLegal.list("copyright_owners")) != 1 {
		t.Errorf("legal name search = %v", byLegal.body)
	}

	detail := e.do(t, "GET", "/api/copyright-owner/capitol-cmg", "")
	if detail.status != 200 || len(detail.list("songs")) != 1 {
		t.Errorf("detail = %d %v", detail.status, detail.body)
	}

	if got := e.do(t, "DELETE", fmt.Sprintf("/api/admin/copyright-owner/%d", id), ""); got.status != 200 {
		t.Errorf("delete = %d", got.status)
	}
	song, _ := e.store.GetSongBySlug(context.Background(), "way-maker")
	if song.CopyrightOwnerID != nil {
		t.Error("owner reference not cleared")
	}
}

func TestPersonWrites_RefreshIndexedSongs(t *testing.T) {
	idx := &fakeIndex{}
	e := newEnv(t, handlers.WithIndex(idx))
	artistID := int64(e.do(t, "POST", "/api/admin/artists", `{"name":"Hillsong"}`).number("id"))
	songID := e.createSong(t, fmt.Sprintf(`{"title":"Oceans","lyrics":"x","artist_id":%d}`, artistID))
	e.createSong(t, `{"title":"Unrelated","lyrics":"y"}`)

	before := len(idx.upserted())
	path := fmt.Sprintf("/api/admin/artist/%d", artistID)

	if got := e.do(t, "PUT", path, `{"name":"Hillsong United"}`); got.status != 200 {
		t.Fatalf("rename = %d %s", got.status, got.raw)
	}
	upserts := idx.upserted()
	if len(upserts) != before+1 {
		t.Fatalf("rename should re-index exactly the credited song, got %d new upserts", len(upserts)-before)
	}
	renamed := upserts[len(upserts)-1]
	if renamed.ID != songID || renamed.ArtistName == nil || *renamed.ArtistName != "Hillsong United" {
		t.Errorf("re-indexed song = %+v", renamed)
	}
	if renamed.ArtistSlug == nil || *renamed.ArtistSlug != "hillsong-united" {
		t.Errorf("artist slug = %v", renamed.ArtistSlug)
	}

	if got := e.do(t, "DELETE", path, ""); got.status != 200 {
		t.Fatalf("delete = %d %s", got.status, got.raw)
	}
	upserts = idx.upserted()
	if len(upserts) != before+2 {
		t.Fatalf("delete should re-index the formerly credited song, got %d new upserts", len(upserts)-before)
	}
	orphaned := upserts[len(upserts)-1]
	if orphaned.ID != songID || orphaned.ArtistID != nil || orphaned.ArtistName != nil || orphaned.ArtistSlug != nil {
		t.Errorf("song after artist delete = %+v", orphaned)
	}
}
