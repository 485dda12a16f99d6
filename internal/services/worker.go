package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/models"
)

type BatchResult struct {
	Index  int
	Result *models.MatchResult
	Err    error
}

// BatchMatcher scores several résumés against one job description.
type BatchMatcher interface {
	// MatchAll returns one BatchResult per résumé, in input order. A failure
	// on one résumé does not affect the others.
	MatchAll(ctx context.Context, job *models.Document, resumes []*models.Document) ([]BatchResult, error)
}

type batchMatcher struct {
	extractor   TextExtractor
	matcher     MatchService
	concurrency int
	logger      *zap.Logger
}

func NewBatchMatcher(extractor TextExtractor, matcher MatchService, concurrency int, logger *zap.Logger) BatchMatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &batchMatcher{
		extractor:   extractor,
		matcher:     matcher,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (b *batchMatcher) MatchAll(ctx context.Context, job *models.Document, resumes []*models.Document) ([]BatchResult, error) {
	jobText, err := b.extractor.Extract(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to extract job description: %w", err)
	}

	results := make([]BatchResult, len(resumes))
	jobQueue := make(chan int)

	var wg sync.WaitGroup
	workers := min(b.concurrency, len(resumes))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobQueue {
				results[idx] = b.process(ctx, workerID, idx, job, jobText, resumes[idx])
			}
		}(i + 1)
	}

	for idx := range resumes {
		jobQueue <- idx
	}
	close(jobQueue)
	wg.Wait()

	return results, nil
}

func (b *batchMatcher) process(ctx context.Context, workerID, idx int, job *models.Document, jobText string, resume *models.Document) BatchResult {
	out := BatchResult{Index: idx}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	name := ""
	if resume != nil {
		name = resume.Name
	}
	log := b.logger.With(zap.Int("worker", workerID), zap.String("resume", name))

	resumeText, err := b.extractor.Extract(ctx, resume)
	if err != nil {
		log.Warn("resume extraction failed", zap.Error(err))
		out.Err = fmt.Errorf("failed to extract resume: %w", err)
		return out
	}

	result, err := b.matcher.MatchTexts(ctx, jobText, resumeText)
	if err != nil {
		log.Warn("resume match failed", zap.Error(err))
		out.Err = err
		return out
	}

	result.JobName = job.Name
	result.ResumeName = name
	out.Result = result
	log.Debug("resume matched", zap.Float64("score", result.Score.Value))
	return out
}
