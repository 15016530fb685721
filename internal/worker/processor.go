package worker

import (
	"context"
	"os"
	"time"

	"github.com/imageforge/imageforge/internal/convert"
	"github.com/imageforge/imageforge/internal/models"
)

const (
	baseConversionTimeout  = 30 * time.Second
	perMBConversionTimeout = time.Second
)

// handle runs one dequeued job to a terminal outcome. Persistence failures
// after a successful conversion are logged but never fail the job.
func (w *Worker) handle(ctx context.Context, job *models.QueueJob, raw string) {
	w.logger.Infof("processing job %s (attempt %d)", job.JobID, job.Attempt)
	start := time.Now()

	if err := w.jobsRepo.MarkProcessing(ctx, job.JobID, time.Now().UTC()); err != nil {
		w.logger.Errorf("marking job %s processing: %v", job.JobID, err)
	}

	data, err := w.readInput(ctx, job)
	if err != nil {
		w.finish(ctx, job, raw, nil, err)
		return
	}

	out, ok := convert.ParseOutputFormat(job.OutputFormat)
	if !ok {
		w.finish(ctx, job, raw, nil, convert.BadOutputFormatErr(job.OutputFormat))
		return
	}

	result, err := w.runConversion(ctx, data, out, job)
	if err != nil {
		w.finish(ctx, job, raw, nil, err)
		return
	}

	outputKey := models.ResultKey(job.BatchID, job.JobID, result.Format)
	if err := w.storageRepo.PutObject(ctx, outputKey, result.Format.ContentType(), result.Buffer); err != nil {
		w.finish(ctx, job, raw, nil, err)
		return
	}

	w.recordUsage(job, data, result, time.Since(start))
	w.finish(ctx, job, raw, result, nil)
}

// runConversion bounds a conversion by input size: a floor for small files
// plus one second per megabyte. A timeout counts as a retryable failure.
func (w *Worker) runConversion(ctx context.Context, data []byte, out convert.Format, job *models.QueueJob) (*convert.Result, error) {
	timeout := baseConversionTimeout + time.Duration(len(data)/(1024*1024))*perMBConversionTimeout
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *convert.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := w.converter.Convert(data, out, job.Options, job.OriginalName)
		done <- outcome{result, err}
	}()

	select {
	case <-ctx.Done():
		return nil, convert.ConversionTimeoutErr(timeout)
	case o := <-done:
		return o.result, o.err
	}
}

// readInput prefers the local spool file and falls back to the uploaded
// original in object storage (the spool path is not shared across hosts).
func (w *Worker) readInput(ctx context.Context, job *models.QueueJob) ([]byte, error) {
	if data, err := os.ReadFile(job.FilePath); err == nil {
		return data, nil
	}
	return w.storageRepo.GetObject(ctx, models.InputKey(job.BatchID, job.OriginalName))
}

// finish settles queue and database state for a terminal or retryable
// outcome, then fires the webhook when the job will not run again.
func (w *Worker) finish(ctx context.Context, job *models.QueueJob, raw string, result *convert.Result, convErr error) {
	now := time.Now().UTC()

	if convErr == nil {
		outputKey := models.ResultKey(job.BatchID, job.JobID, result.Format)
		if err := w.jobsRepo.MarkCompleted(ctx, job.JobID, outputKey, now); err != nil {
			w.logger.Errorf("marking job %s completed: %v", job.JobID, err)
		}
		if err := w.queueRepo.Ack(ctx, job, raw); err != nil {
			w.logger.Errorf("acking job %s: %v", job.JobID, err)
		}
		w.cleanupSpool(job)
		go w.notifier.Notify(context.Background(), job.WebhookURL, &WebhookEvent{
			JobID:     job.JobID,
			BatchID:   job.BatchID,
			Status:    models.JobStatusCompleted,
			OutputKey: outputKey,
		})
		w.logger.Infof("job %s completed", job.JobID)
		return
	}

	if !convert.Retryable(convErr) {
		if err := w.queueRepo.Fail(ctx, job, raw); err != nil {
			w.logger.Errorf("failing job %s: %v", job.JobID, err)
		}
		w.settleFailed(ctx, job, convErr, now)
		return
	}

	terminal, err := w.queueRepo.Retry(ctx, job, raw, convErr)
	if err != nil {
		w.logger.Errorf("retrying job %s: %v", job.JobID, err)
	}
	if terminal {
		w.settleFailed(ctx, job, convErr, now)
		return
	}
	w.logger.Warnf("job %s attempt %d failed: %v", job.JobID, job.Attempt, convErr)
}

func (w *Worker) settleFailed(ctx context.Context, job *models.QueueJob, convErr error, now time.Time) {
	if err := w.jobsRepo.MarkFailed(ctx, job.JobID, convErr.Error(), now); err != nil {
		w.logger.Errorf("marking job %s failed: %v", job.JobID, err)
	}
	w.cleanupSpool(job)
	go w.notifier.Notify(context.Background(), job.WebhookURL, &WebhookEvent{
		JobID:   job.JobID,
		BatchID: job.BatchID,
		Status:  models.JobStatusFailed,
		Error:   convErr.Error(),
	})
	w.logger.Warnf("job %s failed permanently: %v", job.JobID, convErr)
}

func (w *Worker) cleanupSpool(job *models.QueueJob) {
	if job.FilePath == "" {
		return
	}
	if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
		w.logger.Warnf("removing spool file %s: %v", job.FilePath, err)
	}
}

func (w *Worker) recordUsage(job *models.QueueJob, data []byte, result *convert.Result, elapsed time.Duration) {
	inFormat := ""
	if detected, err := convert.DetectFormat(data, job.OriginalName); err == nil {
		inFormat = string(detected)
	}
	jobID := job.JobID
	record := &models.UsageRecord{
		UserID:       job.UserID,
		JobID:        &jobID,
		InputFormat:  inFormat,
		OutputFormat: string(result.Format),
		InputBytes:   int64(len(data)),
		OutputBytes:  int64(result.Size),
		DurationMS:   elapsed.Milliseconds(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.usageRepo.CreateRecord(ctx, record); err != nil {
			w.logger.Errorf("recording usage for job %s: %v", job.JobID, err)
		}
		w.reporter.Report(ctx, job.UserID)
	}()
}
