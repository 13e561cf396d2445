package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/crev/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	files := []models.FileRecord{
		{Path: "widget.py", Content: "print('hello')"},
		{Path: "cmd/main.go", Content: "package main\n\nfunc main() {}\n"},
	}
	criteria := models.ReviewCriteria{Description: "Build a CLI", Level: models.CandidateLevelSenior}

	system, user := BuildPrompt(files, criteria, 1000)

	assert.Contains(t, system, "technical lead")

	assert.Contains(t, user, "- Description: Build a CLI")
	assert.Contains(t, user, "- Expected Level: Senior")
	assert.Contains(t, user, "File: widget.py (Python)")
	assert.Contains(t, user, "File: cmd/main.go (Go)")
	assert.Contains(t, user, "print('hello')...")

	t.Run("asks for the four JSON fields", func(t *testing.T) {
		for _, field := range []string{`"found_files"`, `"comments"`, `"rating"`, `"conclusion"`} {
			assert.Contains(t, user, field)
		}
	})

	t.Run("asks for quality, issues, suggestions and a score", func(t *testing.T) {
		assert.Contains(t, user, "Code Quality Assessment")
		assert.Contains(t, user, "Technical Issues")
		assert.Contains(t, user, "Improvement Suggestions")
		assert.Contains(t, user, "Score out of 10")
	})
}

func TestBuildPrompt_TruncatesContent(t *testing.T) {
	long := strings.Repeat("a", 1000) + strings.Repeat("b", 500)
	files := []models.FileRecord{{Path: "big.js", Content: long}}

	_, user := BuildPrompt(files, models.ReviewCriteria{Description: "d", Level: models.CandidateLevelJunior}, 1000)

	assert.Contains(t, user, strings.Repeat("a", 1000)+"...")
	assert.NotContains(t, user, strings.Repeat("b", 10))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter", "abc", 10, "abc"},
		{"exact", "abc", 3, "abc"},
		{"cut", "abcdef", 4, "abcd"},
		{"runes", "héllo wörld", 7, "héllo w"},
		{"no limit", "abc", 0, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.n))
		})
	}
}
