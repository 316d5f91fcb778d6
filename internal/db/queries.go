package db

const (
	InsertJob = `
		INSERT INTO print_jobs (id, filename, artifact_path, printer_name, page_count, copies, amount, payment_status, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetJobByID = `
		SELECT id, filename, artifact_path, printer_name, page_count, copies, amount, order_id, payment_status, status, error_message, created_at, updated_at
		FROM print_jobs WHERE id = ?
	`

	// AttachOrderID only succeeds while payment is still pending, so an
	// order can never be re-issued for a paid or failed job.
	AttachOrderID = `
		UPDATE print_jobs SET order_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND payment_status = 'pending'
	`

	// MarkJobPaid is the single authoritative pending->paid transition.
	// The WHERE guard makes it atomic: exactly one caller observes a
	// rows-affected count of 1, which gates the dispatch broadcast.
	MarkJobPaid = `
		UPDATE print_jobs SET payment_status = 'paid', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND payment_status = 'pending'
	`

	MarkPaymentFailed = `
		UPDATE print_jobs SET payment_status = 'failed', error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND payment_status = 'pending'
	`

	// UpdateJobStatus refuses to move a job out of a terminal state and
	// refuses to move an unpaid job out of pending.
	UpdateJobStatus = `
		UPDATE print_jobs SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND payment_status = 'paid' AND status NOT IN ('completed', 'failed')
	`

	CountJobsByStatus = `
		SELECT status, COUNT(*) FROM print_jobs GROUP BY status
	`
)

const (
	UpsertPrinter = `
		INSERT INTO printers (name, platform, hostname, status, last_seen_at)
		VALUES (?, ?, ?, 'online', CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			platform = excluded.platform,
			hostname = excluded.hostname,
			status = 'online',
			last_seen_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
	`

	MarkPrinterOffline = `
		UPDATE printers SET status = 'offline', updated_at = CURRENT_TIMESTAMP WHERE name = ?
	`

	ListPrinters = `
		SELECT id, name, platform, hostname, status, last_seen_at, total_prints, created_at, updated_at
		FROM printers ORDER BY name ASC
	`

	IncrementPrinterPrints = `
		UPDATE printers SET total_prints = total_prints + ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?
	`
)

const (
	GetSetting = `SELECT key, value, updated_at FROM settings WHERE key = ?`

	SetSetting = `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
)
