package postgres

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('admin', 'seller')),
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	active        BOOLEAN NOT NULL DEFAULT true,
	last_login_at TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (lower(username));
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));

CREATE TABLE IF NOT EXISTS categories (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '#e27d28',
	active      BOOLEAN NOT NULL DEFAULT true,
	created_by  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS categories_name_key ON categories (lower(name));

CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
	unit        TEXT NOT NULL DEFAULT 'piece',
	category_id TEXT NOT NULL REFERENCES categories (id) ON DELETE RESTRICT,
	min_stock   INTEGER NOT NULL DEFAULT 0 CHECK (min_stock >= 0),
	active      BOOLEAN NOT NULL DEFAULT true,
	created_by  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS products_name_key ON products (lower(name));
CREATE INDEX IF NOT EXISTS products_category_idx ON products (category_id);

CREATE TABLE IF NOT EXISTS inventories (
	id                TEXT PRIMARY KEY,
	date              DATE NOT NULL,
	type              TEXT NOT NULL CHECK (type IN ('opening', 'closing')),
	seller_id         TEXT NOT NULL REFERENCES users (id) ON DELETE RESTRICT,
	notes             TEXT NOT NULL DEFAULT '',
	total_value_cents BIGINT NOT NULL DEFAULT 0 CHECK (total_value_cents >= 0),
	confirmed         BOOLEAN NOT NULL DEFAULT false,
	confirmed_at      TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT inventories_slot_key UNIQUE (date, type, seller_id)
);
CREATE INDEX IF NOT EXISTS inventories_date_idx ON inventories (date);

CREATE TABLE IF NOT EXISTS inventory_items (
	id            TEXT PRIMARY KEY,
	inventory_id  TEXT NOT NULL REFERENCES inventories (id) ON DELETE CASCADE,
	product_id    TEXT NOT NULL REFERENCES products (id) ON DELETE RESTRICT,
	quantity      INTEGER NOT NULL CHECK (quantity >= 0),
	sold_quantity INTEGER CHECK (sold_quantity >= 0),
	notes         TEXT NOT NULL DEFAULT '',
	position      INTEGER NOT NULL DEFAULT 0,
	CONSTRAINT inventory_items_product_key UNIQUE (inventory_id, product_id),
	CONSTRAINT inventory_items_sold_check CHECK (sold_quantity IS NULL OR sold_quantity <= quantity)
);

CREATE TABLE IF NOT EXISTS schedules (
	id            TEXT PRIMARY KEY,
	seller_id     TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	date          DATE NOT NULL,
	type          TEXT NOT NULL CHECK (type IN ('work', 'leave', 'sick')),
	start_minutes INTEGER,
	end_minutes   INTEGER,
	location      TEXT NOT NULL DEFAULT '',
	notes         TEXT NOT NULL DEFAULT '',
	active        BOOLEAN NOT NULL DEFAULT true,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS schedules_seller_date_idx ON schedules (seller_id, date);

CREATE TABLE IF NOT EXISTS audit_logs (
	id             TEXT PRIMARY KEY,
	actor_id       TEXT NOT NULL DEFAULT '',
	actor_username TEXT NOT NULL DEFAULT '',
	actor_role     TEXT NOT NULL DEFAULT '',
	action         TEXT NOT NULL,
	entity_type    TEXT NOT NULL,
	entity_id      TEXT NOT NULL,
	detail         TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_logs_created_idx ON audit_logs (created_at);
`

// EnsureSchema creates missing tables and indexes. It is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
