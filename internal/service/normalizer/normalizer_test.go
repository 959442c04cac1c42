package normalizer

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ifuryst/postmigrate/internal/models"
	"github.com/ifuryst/postmigrate/internal/service/feed"
)

var fixedNow = time.Date(2024, 3, 19, 10, 0, 0, 0, time.UTC)

func newTestNormalizer() (*Normalizer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewNormalizer(zap.New(core))
	n.now = func() time.Time { return fixedNow }
	return n, logs
}

func titles(posts []models.CanonicalPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func TestNormalize_EndToEnd(t *testing.T) {
	entries := []feed.Entry{
		{"content:encoded": "no title here"},
		{"title": "Avisos", "content:encoded": "A &amp; B"},
		{
			"title": "Festa",
			"category": []any{
				map[string]any{"_": "Festas", "$": map[string]any{"nicename": "festas"}},
				map[string]any{"_": "Liturgia", "$": map[string]any{"nicename": "liturgia"}},
			},
		},
	}

	n, _ := newTestNormalizer()
	result := n.Normalize(entries)

	require.Len(t, result.Posts, 3)
	assert.Empty(t, result.Dropped)

	assert.Equal(t, "Untitled post 1", result.Posts[0].Title)
	assert.Equal(t, "1", result.Posts[0].ID)
	assert.Equal(t, "untitled-post-1", result.Posts[0].Slug)

	assert.Equal(t, "A & B", result.Posts[1].Content)

	if diff := cmp.Diff([]string{"festas", "liturgia"}, []string(result.Posts[2].Categories)); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_DropsMalformedEntry(t *testing.T) {
	entries := []feed.Entry{
		{"title": "One"},
		{"title": "Two"},
		{"title": []any{"broken", "title"}},
		{"title": "Four"},
		{"title": "Five", "pubDate": "not a date"},
		{"title": "Six"},
	}

	n, logs := newTestNormalizer()
	result := n.Normalize(entries)

	if diff := cmp.Diff([]string{"One", "Two", "Four", "Six"}, titles(result.Posts)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, result.Dropped, 2)
	assert.Equal(t, 3, result.Dropped[0].Position)
	assert.Equal(t, 5, result.Dropped[1].Position)
	assert.Contains(t, result.Dropped[1].Reason, "not a date")

	// IDs stay tied to feed position, not output index
	assert.Equal(t, "4", result.Posts[2].ID)

	dropLogs := logs.FilterMessage("Failed to normalize entry, skipping").All()
	require.Len(t, dropLogs, 2)
	assert.EqualValues(t, 3, dropLogs[0].ContextMap()["position"])
}

func TestNormalize_JSONFeedWithNonObjectElement(t *testing.T) {
	entries, err := feed.DecodeJSON(strings.NewReader(`[{"title":"a"}, "oops", {"title":"c"}]`))
	require.NoError(t, err)

	n, _ := newTestNormalizer()
	result := n.Normalize(entries)

	if diff := cmp.Diff([]string{"a", "c"}, titles(result.Posts)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, 2, result.Dropped[0].Position)
	assert.Equal(t, "3", result.Posts[1].ID)
}

func TestNormalize_NilEntryIsDropped(t *testing.T) {
	n, _ := newTestNormalizer()
	result := n.Normalize([]feed.Entry{nil, {"title": "ok"}})

	require.Len(t, result.Posts, 1)
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, 1, result.Dropped[0].Position)
}

func TestNormalize_Content(t *testing.T) {
	entries := []feed.Entry{
		{"title": "wrapped", "content": map[string]any{"_": "  &lt;p&gt;Olá&lt;/p&gt; "}},
		{"title": "absent"},
		{"title": "cdata", "content:encoded": "<p>Pão &amp; vinho &#8211; fé</p>"},
		{"title": "wrapped without text", "content": map[string]any{"$": map[string]any{"type": "html"}}},
	}

	n, _ := newTestNormalizer()
	result := n.Normalize(entries)
	require.Len(t, result.Posts, 4)

	assert.Equal(t, "<p>Olá</p>", result.Posts[0].Content)
	assert.Equal(t, "", result.Posts[1].Content)
	assert.Equal(t, "<p>Pão & vinho – fé</p>", result.Posts[2].Content)
	assert.Equal(t, "", result.Posts[3].Content)
}

func TestNormalize_Categories(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{"single string", "Avisos", []string{"Avisos"}},
		{"single wrapped without nicename", map[string]any{"_": "Geral"}, []string{"Geral"}},
		{"list drops falsy", []any{"a", "", nil, false, "b"}, []string{"a", "b"}},
		{"nicename preferred", []any{map[string]any{"_": "Notícias", "$": map[string]any{"nicename": "noticias"}}}, []string{"noticias"}},
		{"empty nicename falls back", map[string]any{"_": "Raw", "$": map[string]any{"nicename": ""}}, []string{"Raw"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := newTestNormalizer()
			result := n.Normalize([]feed.Entry{{"title": "x", "category": tt.value}})
			require.Len(t, result.Posts, 1)
			assert.Equal(t, tt.want, []string(result.Posts[0].Categories))
		})
	}

	t.Run("absent is empty not nil", func(t *testing.T) {
		n, _ := newTestNormalizer()
		result := n.Normalize([]feed.Entry{{"title": "x"}})
		require.Len(t, result.Posts, 1)
		assert.NotNil(t, result.Posts[0].Categories)
		assert.Empty(t, result.Posts[0].Categories)
	})
}

func TestNormalize_Timestamps(t *testing.T) {
	entries := []feed.Entry{
		{
			"title":            "full",
			"pubDate":          "Tue, 19 Mar 2024 09:30:00 +0000",
			"wp:post_date":     "2024-03-18 20:00:00",
			"wp:post_modified": "2024-03-20 08:15:00",
		},
		{"title": "only pubDate", "pubDate": "Tue, 19 Mar 2024 09:30:00 +0000"},
		{"title": "nothing"},
		{"title": "zero date", "wp:post_date": "0000-00-00 00:00:00"},
	}

	n, _ := newTestNormalizer()
	result := n.Normalize(entries)
	require.Len(t, result.Posts, 4)

	published := time.Date(2024, 3, 19, 9, 30, 0, 0, time.UTC)

	full := result.Posts[0]
	assert.True(t, full.PublishedAt.Equal(published))
	assert.True(t, full.CreatedAt.Equal(time.Date(2024, 3, 18, 20, 0, 0, 0, time.UTC)))
	assert.True(t, full.UpdatedAt.Equal(time.Date(2024, 3, 20, 8, 15, 0, 0, time.UTC)))

	onlyPub := result.Posts[1]
	assert.True(t, onlyPub.CreatedAt.Equal(published))
	assert.True(t, onlyPub.UpdatedAt.Equal(published))

	for _, p := range result.Posts[2:] {
		assert.True(t, p.PublishedAt.Equal(fixedNow), p.Title)
		assert.True(t, p.CreatedAt.Equal(fixedNow), p.Title)
	}
}

func TestNormalize_OptionalFieldsAndStatus(t *testing.T) {
	entries := []feed.Entry{
		{"title": "a", "wp:post_id": "42", "wp:post_name": "festa-antiga", "wp:status": "publish", "dc:creator": "padre"},
		{"title": "b", "guid": map[string]any{"_": "http://old/?p=7", "$": map[string]any{"isPermaLink": "false"}}, "status": "draft"},
		{"title": "c", "originalId": float64(99), "filename": "c.html"},
		{"title": "d"},
	}

	n, _ := newTestNormalizer()
	result := n.Normalize(entries)
	require.Len(t, result.Posts, 4)

	a := result.Posts[0]
	require.NotNil(t, a.OriginalID)
	assert.Equal(t, "42", *a.OriginalID)
	require.NotNil(t, a.LegacyFilename)
	assert.Equal(t, "festa-antiga", *a.LegacyFilename)
	assert.Equal(t, models.StatusPublished, a.Status)
	assert.Equal(t, "padre", a.Author)

	b := result.Posts[1]
	require.NotNil(t, b.OriginalID)
	assert.Equal(t, "http://old/?p=7", *b.OriginalID)
	assert.Equal(t, models.StatusDraft, b.Status)

	c := result.Posts[2]
	assert.Equal(t, "99", *c.OriginalID)
	assert.Equal(t, "c.html", *c.LegacyFilename)

	d := result.Posts[3]
	assert.Nil(t, d.OriginalID)
	assert.Nil(t, d.LegacyFilename)
	assert.Equal(t, models.StatusPublished, d.Status)
	assert.Equal(t, "Unknown", d.Author)
}

func TestNormalize_WarnsOnDuplicateSlugs(t *testing.T) {
	n, logs := newTestNormalizer()
	result := n.Normalize([]feed.Entry{{"title": "Missa!"}, {"title": "missa"}})

	require.Len(t, result.Posts, 2)
	assert.Equal(t, result.Posts[0].Slug, result.Posts[1].Slug)
	assert.Equal(t, 1, logs.FilterMessage("Duplicate slug").Len())
}

func TestNormalize_FromXML(t *testing.T) {
	xml := `<rss xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:wp="http://wordpress.org/export/1.2/">
<channel>
<item><title>São José, Padroeiro!</title><content:encoded><![CDATA[Fé &amp; esperança]]></content:encoded>
<category domain="category" nicename="santos"><![CDATA[Santos]]></category></item>
</channel></rss>`

	entries, err := feed.DecodeXML(strings.NewReader(xml))
	require.NoError(t, err)

	n, _ := newTestNormalizer()
	result := n.Normalize(entries)
	require.Len(t, result.Posts, 1)

	post := result.Posts[0]
	assert.Equal(t, "sao-jose-padroeiro", post.Slug)
	assert.Equal(t, "Fé & esperança", post.Content)
	assert.Equal(t, []string{"santos"}, []string(post.Categories))
}
