package storage

const schema = `
-- Decks form a tree below the single 'root' deck. Ids are never reused so a
-- deleted row can be restored under its old id.
CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    parent_id INTEGER,

    FOREIGN KEY(parent_id) REFERENCES decks(id)
);

-- The 'cards' table stores each flashcard and its SM-2 scheduling state.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id INTEGER NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '',
    easiness REAL NOT NULL DEFAULT 2.5,
    interval REAL NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    due_at DATETIME,
    last_reviewed_at DATETIME,
    successes INTEGER NOT NULL DEFAULT 0,
    failures INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,

    FOREIGN KEY(deck_id) REFERENCES decks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cards_due ON cards(due_at, id);

CREATE TABLE IF NOT EXISTS topics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS card_topics (
    card_id INTEGER NOT NULL,
    topic_id INTEGER NOT NULL,
    PRIMARY KEY(card_id, topic_id),

    FOREIGN KEY(card_id) REFERENCES cards(id) ON DELETE CASCADE,
    FOREIGN KEY(topic_id) REFERENCES topics(id) ON DELETE CASCADE
);

-- Directed, weighted edges between topics (concept map).
CREATE TABLE IF NOT EXISTS topic_edges (
    src_topic_id INTEGER NOT NULL,
    dst_topic_id INTEGER NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    PRIMARY KEY(src_topic_id, dst_topic_id),

    FOREIGN KEY(src_topic_id) REFERENCES topics(id) ON DELETE CASCADE,
    FOREIGN KEY(dst_topic_id) REFERENCES topics(id) ON DELETE CASCADE
);

INSERT OR IGNORE INTO decks (name, parent_id) VALUES ('root', NULL);
`
