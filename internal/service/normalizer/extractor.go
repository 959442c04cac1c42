package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ifuryst/postmigrate/internal/models"
	"github.com/ifuryst/postmigrate/internal/service/feed"
)

// Field names in the order they are tried. WXR names come first, the plain
// names cover JSON exports.
var (
	titleKeys     = []string{"title"}
	contentKeys   = []string{"content:encoded", "content"}
	authorKeys    = []string{"dc:creator", "author"}
	publishedKeys = []string{"pubDate", "wp:post_date", "publishedAt"}
	createdKeys   = []string{"wp:post_date", "createdAt"}
	updatedKeys   = []string{"wp:post_modified", "updatedAt"}
	originalKeys  = []string{"wp:post_id", "guid", "originalId"}
	filenameKeys  = []string{"filename", "wp:post_name", "legacyFilename"}
	statusKeys    = []string{"wp:status", "status"}
	categoryKeys  = []string{"category", "categories"}
)

var timeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// WordPress writes this for posts that were never scheduled.
const zeroWXRDate = "0000-00-00 00:00:00"

// lookup returns the first present, non-nil value among keys.
func lookup(entry feed.Entry, keys []string) (string, any, bool) {
	for _, key := range keys {
		if v, ok := entry[key]; ok && v != nil {
			return key, v, true
		}
	}
	return "", nil, false
}

// scalarText reads a value that may be plain text or wrapped text.
func scalarText(key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case map[string]any:
		inner, ok := v[feed.TextKey]
		if !ok || inner == nil {
			return "", nil
		}
		return scalarText(key, inner)
	default:
		return "", fmt.Errorf("field %s has unsupported type %T", key, value)
	}
}

func extractString(entry feed.Entry, keys []string) (string, error) {
	key, value, ok := lookup(entry, keys)
	if !ok {
		return "", nil
	}
	s, err := scalarText(key, value)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func extractOptional(entry feed.Entry, keys []string) (*string, error) {
	s, err := extractString(entry, keys)
	if err != nil || s == "" {
		return nil, err
	}
	return &s, nil
}

func extractTitle(entry feed.Entry, position int) (string, error) {
	title, err := extractString(entry, titleKeys)
	if err != nil {
		return "", err
	}
	if title == "" {
		return fmt.Sprintf("Untitled post %d", position), nil
	}
	return title, nil
}

// extractContent decodes HTML entities in the content field. A wrapped value
// has its text sub-field decoded; a missing field yields "".
func extractContent(entry feed.Entry) (string, error) {
	key, value, ok := lookup(entry, contentKeys)
	if !ok {
		return "", nil
	}
	raw, err := scalarText(key, value)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(html.UnescapeString(raw)), nil
}

func extractAuthor(entry feed.Entry) (string, error) {
	author, err := extractString(entry, authorKeys)
	if err != nil {
		return "", err
	}
	if author == "" {
		return "Unknown", nil
	}
	return author, nil
}

func extractStatus(entry feed.Entry) (string, error) {
	status, err := extractString(entry, statusKeys)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(status) {
	case "":
		return models.StatusPublished, nil
	case "publish", "published":
		return models.StatusPublished, nil
	default:
		return strings.ToUpper(status), nil
	}
}

// extractTime returns nil when the field is absent or holds the WXR zero date.
// Any other unparseable value is an error.
func extractTime(entry feed.Entry, keys []string) (*time.Time, error) {
	for _, key := range keys {
		value, ok := entry[key]
		if !ok || value == nil {
			continue
		}
		raw, err := scalarText(key, value)
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" || raw == zeroWXRDate {
			continue
		}
		t, err := parseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		return &t, nil
	}
	return nil, nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// extractCategories accepts one category or a list. Each contributes its term
// identifier (the nicename attribute) if present, else its raw value. Empty
// values are dropped.
func extractCategories(entry feed.Entry) (models.StringArray, error) {
	key, value, ok := lookup(entry, categoryKeys)
	if !ok {
		return models.StringArray{}, nil
	}

	items, isList := value.([]any)
	if !isList {
		items = []any{value}
	}

	categories := models.StringArray{}
	for _, item := range items {
		term, err := categoryTerm(key, item)
		if err != nil {
			return nil, err
		}
		if term != "" {
			categories = append(categories, term)
		}
	}
	return categories, nil
}

func categoryTerm(key string, item any) (string, error) {
	switch v := item.(type) {
	case nil:
		return "", nil
	case bool:
		if !v {
			return "", nil
		}
		return "", fmt.Errorf("field %s has unsupported value true", key)
	case map[string]any:
		if attrs, ok := v[feed.AttrKey].(map[string]any); ok {
			if term, ok := attrs["nicename"].(string); ok && strings.TrimSpace(term) != "" {
				return strings.TrimSpace(term), nil
			}
		}
		s, err := scalarText(key, v)
		return strings.TrimSpace(s), err
	default:
		s, err := scalarText(key, v)
		if s == "0" {
			return "", err
		}
		return strings.TrimSpace(s), err
	}
}
