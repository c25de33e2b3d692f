package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL CHECK (role IN ('admin', 'owner', 'investor')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS listings (
    id             INTEGER PRIMARY KEY,
    owner_id       INTEGER NOT NULL REFERENCES users(id),
    title          TEXT NOT NULL,
    address        TEXT NOT NULL,
    property_type  TEXT,
    description    TEXT NOT NULL,
    price          TEXT NOT NULL CHECK (CAST(price AS REAL) > 0),
    address2       TEXT NOT NULL DEFAULT '',
    city           TEXT NOT NULL DEFAULT '',
    state          TEXT NOT NULL DEFAULT '',
    zip_code       TEXT NOT NULL DEFAULT '',
    square_footage INTEGER NOT NULL DEFAULT 0,
    bedrooms       INTEGER NOT NULL DEFAULT 0,
    bathrooms      REAL NOT NULL DEFAULT 0,
    garage         INTEGER NOT NULL DEFAULT 0,
    status         TEXT NOT NULL DEFAULT 'draft' CHECK (status IN
                       ('draft', 'pending_review', 'published', 'rejected', 'under_offer', 'sold')),
    review_note    TEXT,
    version        INTEGER NOT NULL DEFAULT 1,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner_id);
CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);

CREATE TABLE IF NOT EXISTS listing_photos (
    id         INTEGER PRIMARY KEY,
    listing_id INTEGER NOT NULL REFERENCES listings(id),
    ref        TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_listing_photos_listing ON listing_photos(listing_id);

CREATE TABLE IF NOT EXISTS offers (
    id           INTEGER PRIMARY KEY,
    listing_id   INTEGER NOT NULL REFERENCES listings(id),
    investor_id  INTEGER NOT NULL REFERENCES users(id),
    amount       TEXT NOT NULL CHECK (CAST(amount AS REAL) > 0),
    type         TEXT NOT NULL CHECK (type IN ('cash', 'financed', 'creative')),
    status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN
                     ('pending', 'accepted', 'rejected', 'withdrawn')),
    note         TEXT,
    submitted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    decided_at   DATETIME,
    decided_by   INTEGER REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_offers_listing ON offers(listing_id, status);
CREATE INDEX IF NOT EXISTS idx_offers_investor ON offers(investor_id);

-- At most one accepted offer per listing, enforced by the engine and here.
CREATE UNIQUE INDEX IF NOT EXISTS idx_offers_one_accepted
    ON offers(listing_id) WHERE status = 'accepted';

CREATE TABLE IF NOT EXISTS investor_profiles (
    investor_id          INTEGER PRIMARY KEY REFERENCES users(id),
    company_name         TEXT NOT NULL,
    representative_name  TEXT NOT NULL,
    representative_title TEXT NOT NULL,
    address              TEXT NOT NULL,
    id_document_ref      TEXT NOT NULL,
    status               TEXT NOT NULL DEFAULT 'pending_review' CHECK (status IN
                             ('unverified', 'pending_review', 'verified', 'rejected')),
    review_note          TEXT,
    submitted_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    reviewed_at          DATETIME,
    reviewed_by          INTEGER REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS activity_events (
    id          INTEGER PRIMARY KEY,
    actor_id    INTEGER NOT NULL,
    actor_role  TEXT NOT NULL,
    action      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   INTEGER NOT NULL,
    details     TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS blobs (
    ref          TEXT PRIMARY KEY,
    content_type TEXT NOT NULL,
    size         INTEGER NOT NULL,
    data         BLOB NOT NULL,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
