package models

import (
	"time"
)

const (
	StatusPublished = "PUBLISHED"
	StatusDraft     = "DRAFT"
)

// CanonicalPost is the destination-ready form of one legacy entry.
type CanonicalPost struct {
	ID             string      `json:"id" bson:"id" dynamodbav:"id"`
	Title          string      `json:"title" bson:"title" dynamodbav:"title"`
	Content        string      `json:"content" bson:"content" dynamodbav:"content"`
	Slug           string      `json:"slug" bson:"slug" dynamodbav:"slug"`
	Author         string      `json:"author" bson:"author" dynamodbav:"author"`
	PublishedAt    time.Time   `json:"publishedAt" bson:"publishedAt" dynamodbav:"publishedAt"`
	CreatedAt      time.Time   `json:"createdAt" bson:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt" bson:"updatedAt" dynamodbav:"updatedAt"`
	Categories     StringArray `json:"categories" bson:"categories" dynamodbav:"categories"`
	OriginalID     *string     `json:"originalId" bson:"originalId" dynamodbav:"originalId"`
	LegacyFilename *string     `json:"legacyFilename" bson:"legacyFilename" dynamodbav:"legacyFilename"`
	Status         string      `json:"status" bson:"status" dynamodbav:"status"`
}

// MigratedPost is what actually reaches the destination: the canonical record
// stamped with the moment it was sent.
type MigratedPost struct {
	CanonicalPost `bson:",inline"`
	MigratedAt    time.Time `json:"migratedAt" bson:"migratedAt" dynamodbav:"migratedAt"`
}

// MigrationBatch is the ordered output of one normalizer run.
type MigrationBatch struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Source      string          `json:"source"`
	Count       int             `json:"count"`
	Posts       []CanonicalPost `json:"posts"`
}

func NewMigrationBatch(source string, posts []CanonicalPost, generatedAt time.Time) *MigrationBatch {
	if posts == nil {
		posts = []CanonicalPost{}
	}
	return &MigrationBatch{
		GeneratedAt: generatedAt,
		Source:      source,
		Count:       len(posts),
		Posts:       posts,
	}
}
