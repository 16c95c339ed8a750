package product_repo

import (
	"context"
	"fmt"

	"datagrid/internal/infrastructure/storage/postgres"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	avatar_url TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
	id                 TEXT PRIMARY KEY,
	sku                TEXT NOT NULL,
	barcode            TEXT NOT NULL DEFAULT '',
	name               TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	brand              TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL,
	cost_price         NUMERIC(12,2) NOT NULL,
	retail_price       NUMERIC(12,2) NOT NULL,
	discount_percent   INTEGER NOT NULL DEFAULT 0,
	final_price        NUMERIC(12,2) NOT NULL,
	currency           TEXT NOT NULL,
	stock_qty          INTEGER NOT NULL DEFAULT 0,
	reserved_qty       INTEGER NOT NULL DEFAULT 0,
	reorder_level      INTEGER NOT NULL DEFAULT 0,
	warehouse_location TEXT NOT NULL DEFAULT '',
	supplier_name      TEXT NOT NULL DEFAULT '',
	supplier_email     TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	is_featured        BOOLEAN NOT NULL DEFAULT FALSE,
	is_returnable      BOOLEAN NOT NULL DEFAULT FALSE,
	is_taxable         BOOLEAN NOT NULL DEFAULT FALSE,
	rating             DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count       INTEGER NOT NULL DEFAULT 0,
	views              INTEGER NOT NULL DEFAULT 0,
	sales_count        INTEGER NOT NULL DEFAULT 0,
	weight_kg          DOUBLE PRECISION NOT NULL DEFAULT 0,
	height_cm          DOUBLE PRECISION NOT NULL DEFAULT 0,
	width_cm           DOUBLE PRECISION NOT NULL DEFAULT 0,
	length_cm          DOUBLE PRECISION NOT NULL DEFAULT 0,
	shipping_class     TEXT NOT NULL DEFAULT '',
	launch_date        TIMESTAMPTZ NOT NULL,
	last_restocked_at  TIMESTAMPTZ,
	expiry_date        TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	tags               TEXT[] NOT NULL DEFAULT '{}',
	notes              TEXT,
	owner_id           TEXT NOT NULL REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS products_created_at_idx ON products (created_at DESC);
`

// notifyDDL announces every statement that changes products on
// postgres.RowsChangedChannel, with the table name as payload.
const notifyDDL = `
CREATE OR REPLACE FUNCTION datagrid_notify_rows_changed() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + postgres.RowsChangedChannel + `', TG_TABLE_NAME);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS products_rows_changed ON products;
CREATE TRIGGER products_rows_changed
	AFTER INSERT OR UPDATE OR DELETE OR TRUNCATE ON products
	FOR EACH STATEMENT EXECUTE FUNCTION datagrid_notify_rows_changed();
`

// EnsureSchema creates the users and products tables when missing and
// installs the change notification trigger.
func (r *ProductRepo) EnsureSchema(ctx context.Context) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.txm.GetQuerier(ctx)
		if _, err := q.Exec(ctx, schemaDDL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := q.Exec(ctx, notifyDDL); err != nil {
			return fmt.Errorf("create notify trigger: %w", err)
		}
		return nil
	})
}
