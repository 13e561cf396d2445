package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidateLevel(t *testing.T) {
	tests := []struct {
		in   string
		want CandidateLevel
	}{
		{"Junior", CandidateLevelJunior},
		{"middle", CandidateLevelMiddle},
		{"  SENIOR ", CandidateLevelSenior},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCandidateLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseCandidateLevel("Principal")
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	files := []FileRecord{{Path: "a.py"}, {Path: "src/b.go"}}
	assert.Equal(t, []string{"a.py", "src/b.go"}, Paths(files))
	assert.Empty(t, Paths(nil))
}
