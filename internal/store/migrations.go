package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create appointments",
		SQL: `
			CREATE TABLE appointments (
				id             TEXT PRIMARY KEY,
				customer_name  TEXT NOT NULL,
				phone          TEXT NOT NULL DEFAULT '',
				service        TEXT NOT NULL,
				date           TEXT NOT NULL,
				time           TEXT NOT NULL,
				status         TEXT NOT NULL DEFAULT 'confirmed',
				event_id       TEXT NOT NULL DEFAULT '',
				notes          TEXT NOT NULL DEFAULT '',
				created_at     TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_appointments_phone ON appointments (phone);
			CREATE INDEX idx_appointments_name ON appointments (customer_name);
			CREATE INDEX idx_appointments_slot ON appointments (date, time);
			CREATE INDEX idx_appointments_status ON appointments (status);
		`,
	},
	{
		Version: 2,
		Name:    "create caller profiles",
		SQL: `
			CREATE TABLE caller_profiles (
				phone              TEXT PRIMARY KEY,
				name               TEXT NOT NULL DEFAULT '',
				call_count         INTEGER NOT NULL DEFAULT 0,
				preferred_service  TEXT NOT NULL DEFAULT '',
				vip                INTEGER NOT NULL DEFAULT 0,
				first_seen         TEXT NOT NULL DEFAULT (datetime('now')),
				last_seen          TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
}
