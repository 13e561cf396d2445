package review

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joescharf/crev/internal/models"
	"github.com/joescharf/crev/internal/svcerr"
)

// StatusSuccess is the status of every successful review.
const StatusSuccess = "success"

// Request is one review submission.
type Request struct {
	GitHubRepoURL         string `json:"github_repo_url"`
	AssignmentDescription string `json:"assignment_description"`
	CandidateLevel        string `json:"candidate_level"`
}

// Response is the success envelope of a review.
type Response struct {
	Status string `json:"status"`
	models.ReviewResult
}

// Fetcher retrieves reviewable files from a repository.
type Fetcher interface {
	FetchFiles(ctx context.Context, repoURL string) ([]models.FileRecord, error)
}

// Reviewer analyzes fetched files against review criteria.
type Reviewer interface {
	Analyze(ctx context.Context, files []models.FileRecord, criteria models.ReviewCriteria) (models.ReviewResult, error)
}

// Service runs the validate, fetch, analyze pipeline for one request.
type Service struct {
	fetcher  Fetcher
	reviewer Reviewer
	timeout  time.Duration
	logger   *slog.Logger
}

// NewService creates a Service. A positive timeout bounds each review.
func NewService(f Fetcher, r Reviewer, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: f, reviewer: r, timeout: timeout, logger: logger}
}

// Review validates req, fetches the repository and returns the analysis.
// Every failure is a *svcerr.Error.
func (s *Service) Review(ctx context.Context, req Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, svcerr.New("Error performing code review: %v", r)
		}
		if err != nil {
			if _, ok := svcerr.As(err); !ok {
				err = svcerr.Wrap(err, "Error performing code review")
			}
		}
	}()

	criteria, err := validate(req)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	files, err := s.fetcher.FetchFiles(ctx, req.GitHubRepoURL)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, svcerr.New("No files found in repository").With("url", req.GitHubRepoURL)
	}
	s.logger.Info("repository fetched", "url", req.GitHubRepoURL, "files", len(files), "elapsed", time.Since(start))

	result, err := s.reviewer.Analyze(ctx, files, criteria)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review complete", "url", req.GitHubRepoURL, "rating", result.Rating, "elapsed", time.Since(start))

	return &Response{Status: StatusSuccess, ReviewResult: result}, nil
}

// validate checks required fields in order and builds the review criteria.
func validate(req Request) (models.ReviewCriteria, error) {
	required := []struct {
		name  string
		value string
	}{
		{"github_repo_url", req.GitHubRepoURL},
		{"assignment_description", req.AssignmentDescription},
		{"candidate_level", req.CandidateLevel},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return models.ReviewCriteria{}, svcerr.New("Missing required field: %s", f.name)
		}
	}

	level, err := models.ParseCandidateLevel(req.CandidateLevel)
	if err != nil {
		return models.ReviewCriteria{}, svcerr.New("Invalid candidate level: %s (expected one of %s)",
			req.CandidateLevel, levelNames())
	}

	return models.ReviewCriteria{
		Description: strings.TrimSpace(req.AssignmentDescription),
		Level:       level,
	}, nil
}

func levelNames() string {
	names := make([]string, len(models.CandidateLevels))
	for i, l := range models.CandidateLevels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

