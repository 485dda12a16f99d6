package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/models"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score one or more resumes against a job description",
	RunE:  runMatch,
}

type matchOutput struct {
	*models.MatchResult
	Resume string `json:"resume"`
	Error  string `json:"error,omitempty"`
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("job", "", "job description file")
	matchCmd.Flags().String("job-text", "", "job description text")
	matchCmd.Flags().String("job-type", "", "job description type (text, pdf, docx)")
	matchCmd.Flags().StringArray("resume", nil, "resume file, may be repeated")
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	jobPath, _ := cmd.Flags().GetString("job")
	jobText, _ := cmd.Flags().GetString("job-text")
	jobType, _ := cmd.Flags().GetString("job-type")
	resumePaths, _ := cmd.Flags().GetStringArray("resume")
	if len(resumePaths) == 0 {
		return errors.New("at least one --resume is required")
	}

	job, err := a.loadJob(jobPath, jobText, jobType)
	if err != nil {
		return err
	}

	if err := a.withProviders(ctx); err != nil {
		return err
	}

	// Unreadable files are reported per resume like any other failure.
	resumes := make([]*models.Document, len(resumePaths))
	loadErrs := make([]error, len(resumePaths))
	for i, path := range resumePaths {
		resumes[i], loadErrs[i] = a.loader.LoadDocument(path, "")
		if loadErrs[i] != nil {
			resumes[i] = &models.Document{Name: path}
		}
	}

	results, err := a.batch.MatchAll(ctx, job, resumes)
	if err != nil {
		return err
	}

	out := make([]matchOutput, len(results))
	failed := 0
	for i, r := range results {
		err := loadErrs[i]
		if err == nil {
			err = r.Err
		}
		if err != nil {
			out[i] = matchOutput{Resume: resumes[i].Name, Error: err.Error()}
			failed++
			a.log.Warn("resume not matched", zap.String("resume", resumePaths[i]), zap.Error(err))
			continue
		}
		out[i] = matchOutput{MatchResult: r.Result, Resume: resumes[i].Name}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	if failed == len(out) {
		return errors.New("no resume could be matched")
	}
	return nil
}
