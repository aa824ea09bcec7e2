package runstore

const schema = `
-- Seeding runs, one row per harness invocation
CREATE TABLE IF NOT EXISTS runs (
    marker TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);

-- Work items created during a run
CREATE TABLE IF NOT EXISTS run_items (
    marker TEXT NOT NULL,
    work_item_id INTEGER NOT NULL,
    PRIMARY KEY (marker, work_item_id),
    FOREIGN KEY (marker) REFERENCES runs(marker) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_run_items_marker ON run_items(marker);
`
