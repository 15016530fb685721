package repository

const (
	createRecordQuery = `INSERT INTO usage_records (user_id, job_id, input_format, output_format, input_bytes, output_bytes, duration_ms)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
					RETURNING record_id, user_id, job_id, input_format, output_format, input_bytes, output_bytes, duration_ms, created_at`

	countSinceQuery = `SELECT COUNT(record_id) FROM usage_records WHERE user_id = $1 AND created_at >= $2`
)
