package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// EnsureTopic returns the id of the named topic, creating it if needed.
func (q *Queries) EnsureTopic(ctx context.Context, name string) (int64, error) {
	if _, err := q.q.ExecContext(ctx, `INSERT OR IGNORE INTO topics (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("failed to insert topic %q: %w", name, err)
	}
	var id int64
	if err := q.get(ctx, &id, `SELECT id FROM topics WHERE name = ?`, name); err != nil {
		return 0, fmt.Errorf("failed to find topic %q: %w", name, err)
	}
	return id, nil
}

// LinkCardTopics tags a card with the named topics. Blank names are skipped
// and existing links are kept.
func (q *Queries) LinkCardTopics(ctx context.Context, cardID int64, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		topicID, err := q.EnsureTopic(ctx, name)
		if err != nil {
			return err
		}
		if _, err := q.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO card_topics (card_id, topic_id) VALUES (?, ?)`,
			cardID, topicID); err != nil {
			return fmt.Errorf("failed to link card %d to topic %q: %w", cardID, name, err)
		}
	}
	return nil
}

// GetAllTopics returns every topic ordered by name.
func (q *Queries) GetAllTopics(ctx context.Context) ([]domain.Topic, error) {
	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := q.selectAll(ctx, &rows, `SELECT id, name FROM topics ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to get all topics: %w", err)
	}
	topics := make([]domain.Topic, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, domain.Topic{ID: r.ID, Name: r.Name})
	}
	return topics, nil
}

// UpsertTopicEdge creates or reweights the directed edge src -> dst,
// creating either topic if it does not exist yet.
func (q *Queries) UpsertTopicEdge(ctx context.Context, edge domain.TopicEdge) error {
	srcID, err := q.EnsureTopic(ctx, edge.Src)
	if err != nil {
		return err
	}
	dstID, err := q.EnsureTopic(ctx, edge.Dst)
	if err != nil {
		return err
	}
	if _, err := q.q.ExecContext(ctx, `
		INSERT INTO topic_edges (src_topic_id, dst_topic_id, weight) VALUES (?, ?, ?)
		ON CONFLICT(src_topic_id, dst_topic_id) DO UPDATE SET weight = excluded.weight
	`, srcID, dstID, edge.Weight); err != nil {
		return fmt.Errorf("failed to upsert edge %s -> %s: %w", edge.Src, edge.Dst, err)
	}
	return nil
}

// GetTopicEdges returns every edge by topic name.
func (q *Queries) GetTopicEdges(ctx context.Context) ([]domain.TopicEdge, error) {
	var rows []struct {
		Src    string  `db:"src"`
		Dst    string  `db:"dst"`
		Weight float64 `db:"weight"`
	}
	if err := q.selectAll(ctx, &rows, `
		SELECT s.name AS src, d.name AS dst, e.weight
		FROM topic_edges e
		JOIN topics s ON s.id = e.src_topic_id
		JOIN topics d ON d.id = e.dst_topic_id
		ORDER BY s.name, d.name
	`); err != nil {
		return nil, fmt.Errorf("failed to get topic edges: %w", err)
	}
	edges := make([]domain.TopicEdge, 0, len(rows))
	for _, r := range rows {
		edges = append(edges, domain.TopicEdge{Src: r.Src, Dst: r.Dst, Weight: r.Weight})
	}
	return edges, nil
}
