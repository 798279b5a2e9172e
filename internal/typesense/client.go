package typesense

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"
	"github.com/typesense/typesense-go/typesense/api/pointer"
	"github.com/yourusername/lyrics-catalog/internal/logging"
	"github.com/yourusername/lyrics-catalog/internal/metrics"
	"github.com/yourusername/lyrics-catalog/internal/models"
)

type Client struct {
	client *typesense.Client
	logger zerolog.Logger
}

const collectionName = "lyrics"

func New(ctx context.Context, apiKey, host string) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(host),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	tc := &Client{client: client, logger: logging.For("typesense")}

	if err := tc.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	tc.logger.Info().Str("host", host).Msg("Typesense client initialized")
	return tc, nil
}

func (c *Client) initSchema(ctx context.Context) error {
	_, err := c.client.Collection(collectionName).Retrieve(ctx)
	if err == nil {
		c.logger.Debug().Msg("Collection already exists")
		return nil
	}

	schema := &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "lyrics", Type: "string"},
			{Name: "artist", Type: "string", Optional: pointer.True()},
			{Name: "composer", Type: "string", Optional: pointer.True()},
			{Name: "category", Type: "string", Optional: pointer.True(), Facet: pointer.True()},
			{Name: "views", Type: "int64"},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("views"),
		// slug and artist_slug are stored on documents without being indexed.
	}

	_, err = c.client.Collections().Create(ctx, schema)
	if err != nil {
		return fmt.Errorf("error creating collection: %w", err)
	}

	c.logger.Info().Str("collection", collectionName).Msg("Typesense collection created")
	return nil
}

func document(song models.Song) map[string]interface{} {
	doc := map[string]interface{}{
		"id":         strconv.FormatInt(song.ID, 10),
		"title":      song.Title,
		"slug":       song.Slug,
		"lyrics":     "",
		"views":      song.Views,
		"created_at": song.CreatedAt.Unix(),
	}
	if song.Lyrics != nil {
		doc["lyrics"] = *song.Lyrics
	}
	if song.ArtistName != nil {
		doc["artist"] = *song.ArtistName
	}
	if song.ArtistSlug != nil {
		doc["artist_slug"] = *song.ArtistSlug
	}
	if song.ComposerName != nil {
		doc["composer"] = *song.ComposerName
	}
	if song.Category != nil && *song.Category != "" {
		doc["category"] = *song.Category
	}
	return doc
}

// Upsert indexes or replaces a song. The song must carry its lyrics.
func (c *Client) Upsert(ctx context.Context, song models.Song) error {
	_, err := c.client.Collection(collectionName).Documents().Upsert(ctx, document(song))
	metrics.SearchIndexOps.WithLabelValues("upsert", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("error indexing song: %w", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	_, err := c.client.Collection(collectionName).Document(strconv.FormatInt(id, 10)).Delete(ctx)
	metrics.SearchIndexOps.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("error deleting song from index: %w", err)
	}
	return nil
}

// Search runs a full-text query over titles, names and lyrics. Ties in text
// relevance are broken by views.
func (c *Client) Search(ctx context.Context, query, category string, limit int) (*models.LyricsSearchResult, error) {
	searchParams := &api.SearchCollectionParams{
		Q:                 query,
		QueryBy:           "title,artist,composer,lyrics",
		SortBy:            pointer.String("_text_match:desc,views:desc"),
		Prefix:            pointer.String("true"),
		PerPage:           pointer.Int(limit),
		HighlightStartTag: pointer.String(""),
		HighlightEndTag:   pointer.String(""),
	}
	if filter := categoryFilter(category); filter != "" {
		searchParams.FilterBy = pointer.String(filter)
	}

	result, err := c.client.Collection(collectionName).Documents().Search(ctx, searchParams)
	metrics.SearchIndexOps.WithLabelValues("search", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("error searching: %w", err)
	}

	songs := make([]models.Song, 0)
	if result.Hits != nil {
		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			songs = append(songs, songFromDocument(*hit.Document))
		}
	}

	searchTimeMs := 0
	if result.SearchTimeMs != nil {
		searchTimeMs = *result.SearchTimeMs
	}

	totalFound := 0
	if result.Found != nil {
		totalFound = *result.Found
	}

	return &models.LyricsSearchResult{
		Songs:      songs,
		TotalFound: totalFound,
		SearchTime: searchTimeMs,
	}, nil
}

// categoryFilter builds an exact-match filter_by clause. Values are wrapped in
// backticks, so backticks inside the value are dropped.
func categoryFilter(category string) string {
	category = strings.TrimSpace(strings.ReplaceAll(category, "`", ""))
	if category == "" {
		return ""
	}
	return "category:=`" + category + "`"
}

func songFromDocument(doc map[string]interface{}) models.Song {
	var song models.Song
	if id, ok := doc["id"].(string); ok {
		song.ID, _ = strconv.ParseInt(id, 10, 64)
	}
	song.Title, _ = doc["title"].(string)
	song.Slug, _ = doc["slug"].(string)

	if v, ok := doc["artist"].(string); ok {
		song.ArtistName = &v
	}
	if v, ok := doc["artist_slug"].(string); ok {
		song.ArtistSlug = &v
	}
	if v, ok := doc["composer"].(string); ok {
		song.ComposerName = &v
	}
	if v, ok := doc["category"].(string); ok {
		song.Category = &v
	}
	if views, ok := doc["views"].(float64); ok {
		song.Views = int64(views)
	}
	if createdAt, ok := doc["created_at"].(float64); ok {
		song.CreatedAt = time.Unix(int64(createdAt), 0).UTC()
	}
	return song
}

// ReindexAll drops the collection and indexes songs from scratch.
func (c *Client) ReindexAll(ctx context.Context, songs []models.Song) error {
	c.logger.Info().Int("songs", len(songs)).Msg("Starting full reindex")

	if _, err := c.client.Collection(collectionName).Delete(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("could not delete existing collection")
	}

	if err := c.initSchema(ctx); err != nil {
		return fmt.Errorf("error recreating schema: %w", err)
	}

	for i, song := range songs {
		if err := c.Upsert(ctx, song); err != nil {
			return fmt.Errorf("error indexing song %d: %w", song.ID, err)
		}
		if (i+1)%100 == 0 {
			c.logger.Info().Int("indexed", i+1).Int("total", len(songs)).Msg("reindex progress")
		}
	}

	c.logger.Info().Int("songs", len(songs)).Msg("Reindex complete")
	return nil
}
