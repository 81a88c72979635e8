package db

import (
	"context"
	"fmt"
	"time"
)

// PublishedArticle maps published_articles, the publisher's record of what
// went live. Only the columns the recency check needs are mapped.
type PublishedArticle struct {
	ArticleID   int64      `gorm:"column:article_id;primaryKey"`
	Title       string     `gorm:"column:title;type:text;not null"`
	Summary     string     `gorm:"column:summary;type:text;not null;default:''"`
	Tags        []string   `gorm:"column:tags;type:jsonb;serializer:json"`
	SourcePath  string     `gorm:"column:source_path;type:text"`
	PublishedAt time.Time  `gorm:"column:published_at;type:timestamptz;not null"`
	GeneratedAt *time.Time `gorm:"column:generated_at;type:timestamptz"`
}

func (PublishedArticle) TableName() string { return "published_articles" }

// acceptedAtColumn is when an article entered the publish set: its
// generation time, or its publish time when it was never stamped.
const acceptedAtColumn = "COALESCE(generated_at, published_at)"

func publishedSinceCondition() string {
	return acceptedAtColumn + " >= ?"
}

// ListPublishedSince returns articles accepted at or after since, newest
// first. Timestamps come back in UTC.
func (p *Pool) ListPublishedSince(ctx context.Context, since time.Time) ([]PublishedArticle, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	var rows []PublishedArticle
	err := p.gdb.WithContext(ctx).
		Where(publishedSinceCondition(), since.UTC()).
		Order(acceptedAtColumn+" DESC").
		Order("article_id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list published articles: %w", err)
	}

	for i := range rows {
		rows[i].PublishedAt = rows[i].PublishedAt.UTC()
		if rows[i].GeneratedAt != nil {
			utc := rows[i].GeneratedAt.UTC()
			rows[i].GeneratedAt = &utc
		}
	}
	return rows, nil
}
