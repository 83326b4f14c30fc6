package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"
)

// Job is one still image to scan.
type Job struct {
	Name  string
	Load  func(ctx context.Context) (image.Image, error)
	Image image.Image
}

// JobResult is the outcome of one Job.
type JobResult struct {
	Name   string
	Report Report
	Err    error
}

// ParallelConfig controls ScanParallel.
type ParallelConfig struct {
	Overlay          bool
	ProgressCallback ProgressCallback
	ErrorHandler     func(int, Job, error)
}

type indexedJob struct {
	index int
	job   Job
}

// ScanParallel scans jobs on the pool's Runners and returns results in input
// order. Per-job errors are kept in JobResult.Err; the first one is also
// returned.
func (p *Pool) ScanParallel(ctx context.Context, jobs []Job, cfg ParallelConfig) ([]JobResult, error) {
	if len(jobs) == 0 {
		return nil, errors.New("no images provided")
	}

	if cfg.ProgressCallback != nil {
		cfg.ProgressCallback.OnStart(len(jobs))
		defer cfg.ProgressCallback.OnComplete()
	}

	queue := make(chan indexedJob, len(jobs))
	for i, j := range jobs {
		queue <- indexedJob{index: i, job: j}
	}
	close(queue)

	results := make([]JobResult, len(jobs))
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)
	for range min(p.Size(), len(jobs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ij := range queue {
				if ctx.Err() != nil {
					return
				}
				res := p.scanJob(ctx, ij.job, cfg.Overlay)
				results[ij.index] = res

				mu.Lock()
				processed++
				current := processed
				mu.Unlock()

				if res.Err != nil && cfg.ProgressCallback != nil {
					cfg.ProgressCallback.OnError(current, res.Err)
				}
				if cfg.ProgressCallback != nil {
					cfg.ProgressCallback.OnProgress(current, len(jobs))
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstErr error
	for i, r := range results {
		if r.Err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("image %d (%s): %w", i, r.Name, r.Err)
		}
		if cfg.ErrorHandler != nil {
			cfg.ErrorHandler(i, jobs[i], r.Err)
		}
	}
	return results, firstErr
}

func (p *Pool) scanJob(ctx context.Context, job Job, overlay bool) JobResult {
	res := JobResult{Name: job.Name}
	img := job.Image
	if img == nil {
		if job.Load == nil {
			res.Err = errors.New("job has neither image nor loader")
			return res
		}
		var err error
		if img, err = job.Load(ctx); err != nil {
			res.Err = err
			return res
		}
	}
	res.Err = p.Do(ctx, func(r *Runner) error {
		var err error
		if overlay {
			res.Report, err = r.ScanImageOverlay(ctx, img)
		} else {
			res.Report, err = r.ScanImage(ctx, img)
		}
		return err
	})
	return res
}

// Stats summarizes a ScanParallel run.
type Stats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FailedImages     int           `json:"failed_images"`
	Detections       int           `json:"detections"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateStats derives throughput figures from results.
func CalculateStats(results []JobResult, duration time.Duration, workers int) Stats {
	s := Stats{TotalImages: len(results), WorkerCount: workers, TotalDuration: duration}
	for _, r := range results {
		if r.Err != nil {
			s.FailedImages++
			continue
		}
		s.ProcessedImages++
		s.Detections += len(r.Report.Detections)
	}
	if s.ProcessedImages > 0 && duration > 0 {
		s.AveragePerImage = duration / time.Duration(s.ProcessedImages)
		s.ThroughputPerSec = float64(s.ProcessedImages) / duration.Seconds()
	}
	return s
}
