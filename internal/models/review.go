package models

import (
	"fmt"
	"strings"
)

// CandidateLevel is the seniority a submission is judged against.
type CandidateLevel string

const (
	CandidateLevelJunior CandidateLevel = "Junior"
	CandidateLevelMiddle CandidateLevel = "Middle"
	CandidateLevelSenior CandidateLevel = "Senior"
)

// CandidateLevels lists the accepted levels in ascending order.
var CandidateLevels = []CandidateLevel{
	CandidateLevelJunior,
	CandidateLevelMiddle,
	CandidateLevelSenior,
}

// ParseCandidateLevel matches s case-insensitively against the known levels.
func ParseCandidateLevel(s string) (CandidateLevel, error) {
	s = strings.TrimSpace(s)
	for _, l := range CandidateLevels {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown candidate level %q", s)
}

// FileRecord is one fetched source file.
type FileRecord struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int    `json:"size"`
}

// ReviewCriteria describes what a submission is reviewed against.
type ReviewCriteria struct {
	Description string
	Level       CandidateLevel
}

// ReviewResult is the normalized outcome of one analysis.
type ReviewResult struct {
	FoundFiles []string `json:"found_files"`
	Comments   []string `json:"comments"`
	Rating     string   `json:"rating"`
	Conclusion string   `json:"conclusion"`
}

// Paths returns the paths of files in order.
func Paths(files []FileRecord) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}
