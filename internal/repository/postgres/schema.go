package postgres

// Schema creates the tables the vault writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS vault_events (
	id               TEXT PRIMARY KEY,
	seq              BIGINT NOT NULL,
	kind             TEXT NOT NULL,
	trace_id         TEXT,
	principal        TEXT,
	agent            TEXT,
	route_id         TEXT,
	zero_for_one     BOOLEAN NOT NULL DEFAULT FALSE,
	amount_in        TEXT,
	amount_out       TEXT,
	identity_binding TEXT,
	approved         BOOLEAN NOT NULL DEFAULT FALSE,
	mode             TEXT,
	status           TEXT,
	error            TEXT,
	attrs            JSONB,
	duration_ms      BIGINT,
	timestamp        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS vault_events_agent_idx ON vault_events (agent, timestamp DESC);
CREATE INDEX IF NOT EXISTS vault_events_kind_idx ON vault_events (kind, timestamp DESC);

CREATE TABLE IF NOT EXISTS approvals (
	id             TEXT PRIMARY KEY,
	agent          TEXT NOT NULL,
	principal      TEXT NOT NULL,
	route_id       TEXT NOT NULL,
	zero_for_one   BOOLEAN NOT NULL,
	amount_in      TEXT NOT NULL,
	min_amount_out TEXT NOT NULL,
	reason         TEXT,
	status         TEXT NOT NULL,
	reviewer_id    TEXT,
	comment        TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS agent_flags (
	agent      TEXT NOT NULL,
	flag       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (agent, flag)
);

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email         TEXT NOT NULL,
	username      TEXT NOT NULL UNIQUE,
	address       TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	scopes        JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
