// Package storetest provides an in-memory catalog store for handler and
// routing tests. It mirrors the PostgreSQL gateway's observable behavior:
// unique slugs, set-null on delete, newest-first listing.
package storetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/lyrics-catalog/internal/database"
	"github.com/yourusername/lyrics-catalog/internal/models"
)

type songRow struct {
	models.Song
	lyrics string
}

type Memory struct {
	mu       sync.Mutex
	nextID   int64
	clock    time.Time
	songs    map[int64]*songRow
	people   map[models.PersonKind]map[int64]*models.Person
	owners   map[int64]*models.CopyrightOwner
	reports  map[int64]*models.Report
	contacts map[int64]*models.ContactMessage

	// Err, when set, is returned by every call.
	Err error
}

func NewMemory() *Memory {
	return &Memory{
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		songs: map[int64]*songRow{},
		people: map[models.PersonKind]map[int64]*models.Person{
			models.KindArtist:   {},
			models.KindComposer: {},
		},
		owners:   map[int64]*models.CopyrightOwner{},
		reports:  map[int64]*models.Report{},
		contacts: map[int64]*models.ContactMessage{},
	}
}

// tick returns a new id and a strictly increasing timestamp.
func (m *Memory) tick() (int64, time.Time) {
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	return m.nextID, m.clock
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func page[T any](all []T, page, pageSize int) models.Page[T] {
	total := int64(len(all))
	items := []T{}
	start := models.Offset(page, pageSize)
	if start < len(all) {
		end := start + pageSize
		if end > len(all) {
			end = len(all)
		}
		items = append(items, all[start:end]...)
	}
	return models.Page[T]{Items: items, Total: total, Page: page, TotalPages: models.TotalPages(total, pageSize)}
}

func (m *Memory) Ping(ctx context.Context) error { return m.Err }

func (m *Memory) Stats(ctx context.Context) (models.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.Stats{
		Songs:           int64(len(m.songs)),
		Artists:         int64(len(m.people[models.KindArtist])),
		Composers:       int64(len(m.people[models.KindComposer])),
		CopyrightOwners: int64(len(m.owners)),
		Contacts:        int64(len(m.contacts)),
	}
	for _, r := range m.reports {
		if r.Status == models.ReportPending {
			s.PendingReports++
		}
	}
	for _, song := range m.songs {
		s.TotalViews += song.Views
	}
	return s, m.Err
}

// project fills the joined display fields the way the SQL joins do.
func (m *Memory) project(row *songRow, withLyrics bool) models.Song {
	s := row.Song
	s.ArtistName, s.ArtistSlug, s.ComposerName, s.ComposerSlug = nil, nil, nil, nil
	s.CopyrightOwnerName, s.CopyrightOwnerSlug = nil, nil
	if s.ArtistID != nil {
		if p, ok := m.people[models.KindArtist][*s.ArtistID]; ok {
			s.ArtistName, s.ArtistSlug = &p.Name, &p.Slug
		}
	}
	if s.ComposerID != nil {
		if p, ok := m.people[models.KindComposer][*s.ComposerID]; ok {
			s.ComposerName, s.ComposerSlug = &p.Name, &p.Slug
		}
	}
	if s.CopyrightOwnerID != nil {
		if o, ok := m.owners[*s.CopyrightOwnerID]; ok {
			s.CopyrightOwnerName, s.CopyrightOwnerSlug = &o.Name, &o.Slug
		}
	}
	s.Lyrics = nil
	if withLyrics {
		l := row.lyrics
		s.Lyrics = &l
	}
	return s
}

func (m *Memory) songsWhere(keep func(*songRow) bool, less func(a, b models.Song) bool) []models.Song {
	out := []models.Song{}
	for _, row := range m.songs {
		if keep(row) {
			out = append(out, m.project(row, false))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func newestFirst(a, b models.Song) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func mostViewed(a, b models.Song) bool {
	if a.Views != b.Views {
		return a.Views > b.Views
	}
	return a.Title < b.Title
}

func (m *Memory) ListSongs(ctx context.Context, filter models.SongFilter, p, pageSize int) (models.Page[models.Song], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.songsWhere(func(r *songRow) bool {
		if filter.Category != "" && (r.Category == nil || *r.Category != filter.Category) {
			return false
		}
		if filter.Query != "" && !contains(r.Title, filter.Query) && !contains(r.Slug, filter.Query) {
			return false
		}
		return true
	}, newestFirst)
	return page(all, p, pageSize), m.Err
}

func (m *Memory) GetSongBySlug(ctx context.Context, slug string) (*models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.songs {
		if row.Slug == slug {
			s := m.project(row, true)
			return &s, m.Err
		}
	}
	return nil, m.Err
}

func (m *Memory) GetSongByID(ctx context.Context, id int64) (*models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.songs[id]
	if !ok {
		return nil, m.Err
	}
	s := m.project(row, true)
	return &s, m.Err
}

func (m *Memory) SearchSongs(ctx context.Context, q string, limit int) ([]models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.songsWhere(func(r *songRow) bool {
		if contains(r.Title, q) {
			return true
		}
		if r.ArtistID != nil {
			if p, ok := m.people[models.KindArtist][*r.ArtistID]; ok && contains(p.Name, q) {
				return true
			}
		}
		return false
	}, mostViewed)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, m.Err
}

func (m *Memory) PopularSongs(ctx context.Context, limit int) ([]models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.songsWhere(func(*songRow) bool { return true }, mostViewed)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, m.Err
}

func (m *Memory) SongsByPerson(ctx context.Context, kind models.PersonKind, personID int64) ([]models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.songsWhere(func(r *songRow) bool {
		ref := r.ArtistID
		if kind == models.KindComposer {
			ref = r.ComposerID
		}
		return ref != nil && *ref == personID
	}, mostViewed), m.Err
}

func (m *Memory) SongsByOwner(ctx context.Context, ownerID int64) ([]models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.songsWhere(func(r *songRow) bool {
		return r.CopyrightOwnerID != nil && *r.CopyrightOwnerID == ownerID
	}, mostViewed), m.Err
}

func (m *Memory) Categories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, r := range m.songs {
		if r.Category != nil && *r.Category != "" && !seen[*r.Category] {
			seen[*r.Category] = true
			out = append(out, *r.Category)
		}
	}
	sort.Strings(out)
	return out, m.Err
}

func (m *Memory) songSlugTaken(slug string, excludeID int64) bool {
	for id, r := range m.songs {
		if r.Slug == slug && id != excludeID {
			return true
		}
	}
	return false
}

func (m *Memory) checkRefs(in models.SongInput) error {
	if in.ArtistID != nil {
		if _, ok := m.people[models.KindArtist][*in.ArtistID]; !ok {
			return database.ErrMissingReference
		}
	}
	if in.ComposerID != nil {
		if _, ok := m.people[models.KindComposer][*in.ComposerID]; !ok {
			return database.ErrMissingReference
		}
	}
	if in.CopyrightOwnerID != nil {
		if _, ok := m.owners[*in.CopyrightOwnerID]; !ok {
			return database.ErrMissingReference
		}
	}
	return nil
}

func (m *Memory) CreateSong(ctx context.Context, in models.SongInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if m.songSlugTaken(in.Slug, 0) {
		return 0, database.ErrSlugConflict
	}
	if err := m.checkRefs(in); err != nil {
		return 0, err
	}
	id, now := m.tick()
	m.songs[id] = &songRow{
		Song: models.Song{
			ID: id, Title: in.Title, Slug: in.Slug, Category: in.Category, CreatedAt: now,
			ArtistID: in.ArtistID, ComposerID: in.ComposerID, CopyrightOwnerID: in.CopyrightOwnerID,
		},
		lyrics: in.Lyrics,
	}
	return id, nil
}

func (m *Memory) UpdateSong(ctx context.Context, id int64, in models.SongInput) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	row, ok := m.songs[id]
	if !ok {
		return false, nil
	}
	if m.songSlugTaken(in.Slug, id) {
		return false, database.ErrSlugConflict
	}
	if err := m.checkRefs(in); err != nil {
		return false, err
	}
	row.Title, row.Slug, row.Category, row.lyrics = in.Title, in.Slug, in.Category, in.Lyrics
	row.ArtistID, row.ComposerID, row.CopyrightOwnerID = in.ArtistID, in.ComposerID, in.CopyrightOwnerID
	return true, nil
}

func (m *Memory) DeleteSong(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.songs[id]
	delete(m.songs, id)
	return ok, m.Err
}

func (m *Memory) IncrementViews(ctx context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for _, r := range m.songs {
		if r.Slug == slug {
			r.Views++
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) SongSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.songSlugTaken(slug, excludeID), m.Err
}

func (m *Memory) AllSongsForIndex(ctx context.Context) ([]models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Song
	for _, r := range m.songs {
		out = append(out, m.project(r, true))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, m.Err
}

func (m *Memory) personSongCount(kind models.PersonKind, id int64) int64 {
	var n int64
	for _, r := range m.songs {
		ref := r.ArtistID
		if kind == models.KindComposer {
			ref = r.ComposerID
		}
		if ref != nil && *ref == id {
			n++
		}
	}
	return n
}

func (m *Memory) peopleWhere(kind models.PersonKind, keep func(*models.Person) bool) []models.Person {
	out := []models.Person{}
	for _, p := range m.people[kind] {
		if keep(p) {
			cp := *p
			cp.SongCount = m.personSongCount(kind, p.ID)
			out = append(out, cp)
		}
	}
	return out
}

func (m *Memory) ListPeople(ctx context.Context, kind models.PersonKind, q string, p, pageSize int) (models.Page[models.Person], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.peopleWhere(kind, func(p *models.Person) bool { return q == "" || contains(p.Name, q) })
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, p, pageSize), m.Err
}

func (m *Memory) GetPersonBySlug(ctx context.Context, kind models.PersonKind, slug string) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := m.peopleWhere(kind, func(p *models.Person) bool { return p.Slug == slug })
	if len(found) == 0 {
		return nil, m.Err
	}
	return &found[0], m.Err
}

func (m *Memory) GetPersonByID(ctx context.Context, kind models.PersonKind, id int64) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := m.peopleWhere(kind, func(p *models.Person) bool { return p.ID == id })
	if len(found) == 0 {
		return nil, m.Err
	}
	return &found[0], m.Err
}

func (m *Memory) SearchPeople(ctx context.Context, kind models.PersonKind, q string, limit int) ([]models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.peopleWhere(kind, func(p *models.Person) bool { return contains(p.Name, q) })
	sort.Slice(out, func(i, j int) bool {
		if out[i].SongCount != out[j].SongCount {
			return out[i].SongCount > out[j].SongCount
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, m.Err
}

func (m *Memory) personSlugTaken(kind models.PersonKind, slug string, excludeID int64) bool {
	for id, p := range m.people[kind] {
		if p.Slug == slug && id != excludeID {
			return true
		}
	}
	return false
}

func (m *Memory) CreatePerson(ctx context.Context, kind models.PersonKind, in models.PersonInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if m.personSlugTaken(kind, in.Slug, 0) {
		return 0, database.ErrSlugConflict
	}
	id, now := m.tick()
	m.people[kind][id] = &models.Person{
		ID: id, Name: in.Name, Slug: in.Slug, Bio: in.Bio, ImageURL: in.ImageURL,
		SocialLinks: in.SocialLinks, CreatedAt: now,
	}
	return id, nil
}

func (m *Memory) UpdatePerson(ctx context.Context, kind models.PersonKind, id int64, in models.PersonInput) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	p, ok := m.people[kind][id]
	if !ok {
		return false, nil
	}
	if m.personSlugTaken(kind, in.Slug, id) {
		return false, database.ErrSlugConflict
	}
	p.Name, p.Slug, p.Bio, p.ImageURL, p.SocialLinks = in.Name, in.Slug, in.Bio, in.ImageURL, in.SocialLinks
	return true, nil
}

func (m *Memory) DeletePerson(ctx context.Context, kind models.PersonKind, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[kind][id]; !ok {
		return false, m.Err
	}
	delete(m.people[kind], id)
	for _, r := range m.songs {
		if kind == models.KindArtist && r.ArtistID != nil && *r.ArtistID == id {
			r.ArtistID = nil
		}
		if kind == models.KindComposer && r.ComposerID != nil && *r.ComposerID == id {
			r.ComposerID = nil
		}
	}
	return true, m.Err
}

func (m *Memory) PersonSlugTaken(ctx context.Context, kind models.PersonKind, slug string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.personSlugTaken(kind, slug, excludeID), m.Err
}

func (m *Memory) ownersWhere(keep func(*models.CopyrightOwner) bool) []models.CopyrightOwner {
	out := []models.CopyrightOwner{}
	for _, o := range m.owners {
		if keep(o) {
			cp := *o
			for _, r := range m.songs {
				if r.CopyrightOwnerID != nil && *r.CopyrightOwnerID == o.ID {
					cp.SongCount++
				}
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Memory) ListOwners(ctx context.Context, q string, p, pageSize int) (models.Page[models.CopyrightOwner], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.ownersWhere(func(o *models.CopyrightOwner) bool {
		return q == "" || contains(o.Name, q) || (o.LegalName != nil && contains(*o.LegalName, q))
	})
	return page(all, p, pageSize), m.Err
}

func (m *Memory) GetOwnerBySlug(ctx context.Context, slug string) (*models.CopyrightOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := m.ownersWhere(func(o *models.CopyrightOwner) bool { return o.Slug == slug })
	if len(found) == 0 {
		return nil, m.Err
	}
	return &found[0], m.Err
}

func (m *Memory) GetOwnerByID(ctx context.Context, id int64) (*models.CopyrightOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := m.ownersWhere(func(o *models.CopyrightOwner) bool { return o.ID == id })
	if len(found) == 0 {
		return nil, m.Err
	}
	return &found[0], m.Err
}

func (m *Memory) SearchOwners(ctx context.Context, q string, limit int) ([]models.CopyrightOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.ownersWhere(func(o *models.CopyrightOwner) bool { return contains(o.Name, q) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, m.Err
}

func (m *Memory) ownerSlugTaken(slug string, excludeID int64) bool {
	for id, o := range m.owners {
		if o.Slug == slug && id != excludeID {
			return true
		}
	}
	return false
}

func ownerFromInput(id int64, created time.Time, in models.CopyrightOwnerInput) *models.CopyrightOwner {
	return &models.CopyrightOwner{
		ID: id, Name: in.Name, Slug: in.Slug, LegalName: in.LegalName, Organization: in.Organization,
		Territory: in.Territory, Email: in.Email, Website: in.Website, Address: in.Address,
		RegistrationID: in.RegistrationID, Affiliation: in.Affiliation, Notes: in.Notes, CreatedAt: created,
	}
}

func (m *Memory) CreateOwner(ctx context.Context, in models.CopyrightOwnerInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if m.ownerSlugTaken(in.Slug, 0) {
		return 0, database.ErrSlugConflict
	}
	id, now := m.tick()
	m.owners[id] = ownerFromInput(id, now, in)
	return id, nil
}

func (m *Memory) UpdateOwner(ctx context.Context, id int64, in models.CopyrightOwnerInput) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	o, ok := m.owners[id]
	if !ok {
		return false, nil
	}
	if m.ownerSlugTaken(in.Slug, id) {
		return false, database.ErrSlugConflict
	}
	m.owners[id] = ownerFromInput(id, o.CreatedAt, in)
	return true, nil
}

func (m *Memory) DeleteOwner(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.owners[id]; !ok {
		return false, m.Err
	}
	delete(m.owners, id)
	for _, r := range m.songs {
		if r.CopyrightOwnerID != nil && *r.CopyrightOwnerID == id {
			r.CopyrightOwnerID = nil
		}
	}
	return true, m.Err
}

func (m *Memory) OwnerSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownerSlugTaken(slug, excludeID), m.Err
}

func (m *Memory) CreateReport(ctx context.Context, r models.Report) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	id, now := m.tick()
	r.ID, r.CreatedAt, r.Status = id, now, models.ReportPending
	m.reports[id] = &r
	return id, nil
}

func (m *Memory) ListReports(ctx context.Context, status models.ReportStatus, p, pageSize int) (models.Page[models.Report], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []models.Report{}
	for _, r := range m.reports {
		if status == "" || r.Status == status {
			all = append(all, *r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return page(all, p, pageSize), m.Err
}

func (m *Memory) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, m.Err
	}
	cp := *r
	return &cp, m.Err
}

// Report returns a copy of the stored report, for assertions.
func (m *Memory) Report(id int64) (models.Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return models.Report{}, false
	}
	return *r, true
}

func (m *Memory) UpdateReportStatus(ctx context.Context, id int64, status models.ReportStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return false, m.Err
	}
	r.Status = status
	return true, m.Err
}

func (m *Memory) DeleteReport(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.reports[id]
	delete(m.reports, id)
	return ok, m.Err
}

func (m *Memory) CreateContact(ctx context.Context, msg models.ContactMessage) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	id, now := m.tick()
	msg.ID, msg.CreatedAt = id, now
	if msg.Subject == "" {
		msg.Subject = models.DefaultContactSubject
	}
	m.contacts[id] = &msg
	return id, nil
}

func (m *Memory) ListContacts(ctx context.Context, p, pageSize int) (models.Page[models.ContactMessage], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []models.ContactMessage{}
	for _, c := range m.contacts {
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return page(all, p, pageSize), m.Err
}

func (m *Memory) DeleteContact(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.contacts[id]
	delete(m.contacts, id)
	return ok, m.Err
}

// ErrInjected is a convenience error for failure-path tests.
var ErrInjected = errors.New("injected store failure")
