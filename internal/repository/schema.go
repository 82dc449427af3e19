package repository

// migrationsFor returns the CREATE statements for a dialect. Active-number
// uniqueness is enforced by the store as well as by the allocator: a partial
// index on SQLite, a unique generated column on MySQL.
func migrationsFor(dialect Dialect) []string {
	if dialect == DialectMySQL {
		return mysqlMigrations
	}
	return sqliteMigrations
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		assigned_number INTEGER NOT NULL CHECK (assigned_number >= 1),
		entry_kind TEXT NOT NULL CHECK (entry_kind IN ('PRIMARY', 'OVERFLOW', 'MANUAL')),
		amount_charged INTEGER NOT NULL,
		payment_ref TEXT,
		status TEXT NOT NULL CHECK (status IN ('PENDING', 'CONFIRMED', 'FAILED', 'REFUNDED')),
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		notes TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_active_number
		ON entries(assigned_number) WHERE status IN ('PENDING', 'CONFIRMED')`,
	`CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_kind_number ON entries(entry_kind, assigned_number)`,
	`CREATE TABLE IF NOT EXISTS raffle_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		campaign_name TEXT NOT NULL,
		prize_description TEXT NOT NULL,
		cash_value INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		overflow_enabled BOOLEAN NOT NULL DEFAULT 0,
		overflow_start_time DATETIME,
		overflow_duration_minutes INTEGER NOT NULL DEFAULT 180 CHECK (overflow_duration_minutes >= 1),
		winner_entry_id TEXT REFERENCES entries(id),
		winner_drawn_at DATETIME,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

var mysqlMigrations = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		id CHAR(36) NOT NULL PRIMARY KEY,
		assigned_number INT NOT NULL,
		entry_kind VARCHAR(16) NOT NULL,
		amount_charged BIGINT NOT NULL,
		payment_ref VARCHAR(255) NULL,
		status VARCHAR(16) NOT NULL,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(64) NOT NULL,
		notes TEXT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		active_number INT GENERATED ALWAYS AS
			(CASE WHEN status IN ('PENDING', 'CONFIRMED') THEN assigned_number END) STORED,
		UNIQUE KEY uq_entries_active_number (active_number),
		KEY idx_entries_status (status),
		KEY idx_entries_kind_number (entry_kind, assigned_number),
		CONSTRAINT chk_entries_number CHECK (assigned_number >= 1)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS raffle_settings (
		id TINYINT NOT NULL PRIMARY KEY,
		campaign_name VARCHAR(255) NOT NULL,
		prize_description VARCHAR(1024) NOT NULL,
		cash_value BIGINT NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		overflow_enabled TINYINT(1) NOT NULL DEFAULT 0,
		overflow_start_time DATETIME(6) NULL,
		overflow_duration_minutes INT NOT NULL DEFAULT 180,
		winner_entry_id CHAR(36) NULL,
		winner_drawn_at DATETIME(6) NULL,
		updated_at DATETIME(6) NOT NULL,
		CONSTRAINT chk_settings_singleton CHECK (id = 1),
		CONSTRAINT fk_settings_winner FOREIGN KEY (winner_entry_id) REFERENCES entries(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
