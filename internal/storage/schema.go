package storage

const schema = `
-- The 'sources' table tracks where flashcard documents come from, either a
-- local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    last_scanned DATETIME
);

-- The 'engine_state' table is a key/value store for session state that must
-- survive restarts, e.g. the bury date and the bury list.
CREATE TABLE IF NOT EXISTS engine_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- The 'review_log' table records every graded answer.
CREATE TABLE IF NOT EXISTS review_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    question_hash TEXT NOT NULL,
    grade TEXT NOT NULL,
    interval INTEGER NOT NULL,
    ease INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL
);
`
