package fileutils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "socios.xlsx", "socios.xlsx"},
		{"path separators", "../../etc/passwd", "etcpasswd"},
		{"smart quotes", "“Libros” 2024.xls", "Libros 2024.xls"},
		{"whitespace runs", "  libros   nuevos .csv ", "libros nuevos .csv"},
		{"trailing dots", "autores...", "autores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestUploadName(t *testing.T) {
	now := time.Date(2026, 10, 19, 14, 5, 9, 0, time.UTC)

	name := UploadName("books", "/tmp/Mis Libros.xlsx", now)
	assert.True(t, strings.HasPrefix(name, "books_20261019_140509_"), name)
	assert.True(t, strings.HasSuffix(name, "_Mis_Libros.xlsx"), name)
	assert.Len(t, strings.Split(name, "_"), 6)

	assert.True(t, strings.HasSuffix(UploadName("members", "...", now), "_upload"))
}

func TestSplitNames(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "mixed comma and semicolon",
			input:    "Ana, Luis; Marta",
			expected: []string{"Ana", "Luis", "Marta"},
		},
		{
			name:     "empty parts filtered",
			input:    "Ana,,Luis;;",
			expected: []string{"Ana", "Luis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitNames(tt.input))
		})
	}
}
