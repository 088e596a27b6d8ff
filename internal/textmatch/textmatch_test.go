package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "PREDAM POZEMOK", "predam pozemok"},
		{"strips diacritics", "Á č ď É ľ š ť ž ô ý", "a c d e l s t z o y"},
		{"collapses whitespace", "  predam \t pozemok \n lacno ", "predam pozemok lacno"},
		{"folds superscripts", "120 m²", "120 m2"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_AccentedEqualsPlain(t *testing.T) {
	assert.Equal(t, Normalize("výmera pozemku"), Normalize("vymera pozemku"))
	assert.Equal(t, Normalize("ÚŽITKOVÁ PLOCHA"), Normalize("uzitkova plocha"))
}

func TestNormalize_Idempotent(t *testing.T) {
	once := Normalize("Predám ornú pôdu, výmera 5 000 m²")
	assert.Equal(t, once, Normalize(once))
}

func TestContainsAny(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
	}{
		{"match", "predam skoda octavia", []string{"octavia", "fabia"}, true},
		{"no match", "predam skoda fabia", []string{"octavia"}, false},
		{"accent folded", "predám škoda octávia", []string{"octavia"}, true},
		{"empty keywords", "predam skoda", nil, false},
		{"empty text", "", []string{"octavia"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsAny(tt.text, tt.keywords))
		})
	}
}

func TestContainsAll(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
	}{
		{"all present", "bmw 320d e91 touring", []string{"bmw", "touring"}, true},
		{"one missing", "bmw 320d sedan", []string{"bmw", "touring"}, false},
		{"empty keywords pass", "bmw 320d", nil, true},
		{"empty text with keywords", "", []string{"bmw"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsAll(tt.text, tt.keywords))
		})
	}
}

func TestExcludesAll(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
	}{
		{"clean text", "predam pozemok", []string{"prenajom", "najom"}, true},
		{"excluded present", "dam do prenajmu pozemok", []string{"prenajmu"}, false},
		{"accent folded exclusion", "dám do prenájmu", []string{"prenajmu"}, false},
		{"empty keywords", "predam pozemok", nil, true},
		{"empty text", "", []string{"prenajom"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExcludesAll(tt.text, tt.keywords))
		})
	}
}
