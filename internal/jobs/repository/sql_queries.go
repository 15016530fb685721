package repository

const (
	createJobQuery = `INSERT INTO jobs (user_id, batch_id, input_format, output_format, file_size,
	                   input_key, webhook_url, status, created_at)
	                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	                   RETURNING *`

	getJobByIDQuery = `SELECT job_id, batch_id, user_id, input_format, output_format, file_size,
	                    input_key, output_key, webhook_url, status, error,
	                    created_at, started_at, completed_at
	                    FROM jobs WHERE job_id = $1`

	getTotalJobsCountQuery = `SELECT COUNT(job_id) FROM jobs WHERE user_id = $1`

	getJobsQuery = `SELECT job_id, batch_id, user_id, input_format, output_format, file_size,
	                 input_key, output_key, webhook_url, status, error,
	                 created_at, started_at, completed_at
	                 FROM jobs WHERE user_id = $1
	                 ORDER BY created_at DESC OFFSET $2 LIMIT $3`

	markProcessingQuery = `UPDATE jobs SET status = 'PROCESSING', started_at = $2
	                        WHERE job_id = $1`

	markCompletedQuery = `UPDATE jobs SET status = 'COMPLETED', output_key = $2, error = NULL,
	                       completed_at = $3
	                       WHERE job_id = $1`

	markFailedQuery = `UPDATE jobs SET status = 'FAILED', error = $2, output_key = NULL,
	                    completed_at = $3
	                    WHERE job_id = $1`
)
