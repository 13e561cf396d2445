package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/joescharf/crev/internal/github"
	"github.com/joescharf/crev/internal/models"
	"github.com/joescharf/crev/internal/review"
)

const progressTemplate = `{{ string . "prefix" }}{{ counters . }} files {{ cycle . "⠋" "⠙" "⠹" "⠸" "⠼" "⠴" "⠦" "⠧" "⠇" "⠏" }} {{ string . "file" }}`

var (
	reviewRepo        string
	reviewDescription string
	reviewLevel       string
	reviewJSON        bool
	reviewNoProgress  bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a GitHub repository once and print the result",
	Example: `  crev review --repo https://github.com/acme/widget \
    --description "Build a REST API with user authentication" \
    --level Senior`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return reviewRun(ctx, review.Request{
			GitHubRepoURL:         reviewRepo,
			AssignmentDescription: reviewDescription,
			CandidateLevel:        reviewLevel,
		})
	},
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewRepo, "repo", "r", "", "GitHub repository URL")
	reviewCmd.Flags().StringVarP(&reviewDescription, "description", "d", "", "Assignment description")
	reviewCmd.Flags().StringVarP(&reviewLevel, "level", "l", "", "Candidate level (Junior, Middle, Senior)")
	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "Print the raw JSON response")
	reviewCmd.Flags().BoolVar(&reviewNoProgress, "no-progress", false, "Disable the fetch progress bar")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(ctx context.Context, req review.Request) error {
	var opts []github.Option
	var bar *pb.ProgressBar
	if !reviewNoProgress {
		bar = pb.ProgressBarTemplate(progressTemplate).New(0)
		bar.SetWriter(ui.ErrOut)
		bar.Set("prefix", "Fetching ")
		opts = append(opts, github.WithProgress(func(f models.FileRecord) {
			bar.Set("file", f.Path)
			bar.Increment()
		}))
	}

	svc, err := newService(opts...)
	if err != nil {
		return err
	}
	ui.VerboseLog("Reviewing %s as %s", req.GitHubRepoURL, req.CandidateLevel)

	if bar != nil {
		bar.Start()
	}
	resp, err := svc.Review(ctx, req)
	if bar != nil {
		bar.Set("file", "")
		bar.Finish()
	}
	if err != nil {
		return err
	}
	return printReview(req.GitHubRepoURL, resp)
}

func printReview(repoURL string, resp *review.Response) error {
	if reviewJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal review: %w", err)
		}
		fmt.Fprintln(ui.Out, string(data))
		return nil
	}
	return ui.Report(repoURL, resp.ReviewResult)
}
