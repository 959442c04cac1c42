package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"accents and punctuation", "São José, Padroeiro!", "sao-jose-padroeiro"},
		{"plain", "Hello World", "hello-world"},
		{"collapses whitespace runs", "  Missa   de   Domingo  ", "missa-de-domingo"},
		{"collapses hyphen runs", "Advento -- 1ª Semana", "advento-1-semana"},
		{"keeps digits", "Festa 2024", "festa-2024"},
		{"cedilla", "Celebração da Crisma", "celebracao-da-crisma"},
		{"drops non latin", "日本 Post", "post"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
		{"tabs and newlines", "a\tb\nc", "a-b-c"},
		{"non-breaking space", "Missa\u00a0de Domingo", "missa-de-domingo"},
		{"em space", "Festa\u2003Junina", "festa-junina"},
		{"ideographic space", "Natal\u3000Feliz", "natal-feliz"},
		{"vertical tab", "a\vb", "a-b"},
		{"trims unicode spaces", "\ufeff\u00a0Quaresma\u2028", "quaresma"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.title))
		})
	}
}

func TestGenerateSlug_Idempotent(t *testing.T) {
	titles := []string{
		"São José, Padroeiro!",
		"Notícias da Paróquia -- Março",
		"   ",
		"Über-Große   Straße",
		"Missa\u00a0de\u2003Domingo",
	}

	for _, title := range titles {
		once := GenerateSlug(title)
		assert.Equal(t, once, GenerateSlug(once), "title %q", title)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 50))

	exact := strings.Repeat("a", 50)
	assert.Equal(t, exact, Truncate(exact, 50))

	long := strings.Repeat("b", 60)
	assert.Equal(t, strings.Repeat("b", 50)+"...", Truncate(long, 50))

	// Counts runes, not bytes
	accented := strings.Repeat("é", 51)
	assert.Equal(t, strings.Repeat("é", 50)+"...", Truncate(accented, 50))
}
