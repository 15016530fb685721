package repository

const (
	getUserByAPIKeyQuery = `SELECT u.user_id, u.email, u.fullname, u.plan, u.billing_account_id, u.created_at, u.updated_at
					FROM users u
					JOIN api_keys k ON k.user_id = u.user_id
					WHERE k.key_hash = $1 AND k.revoked_at IS NULL`

	getUserByIDQuery = `SELECT user_id, email, fullname, plan, billing_account_id, created_at, updated_at
					FROM users WHERE user_id = $1`

	touchAPIKeyQuery = `UPDATE api_keys SET last_used_at = now() WHERE key_hash = $1`
)
