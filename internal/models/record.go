package models

import (
	"time"
)

// PostRecord is the relational row for a migrated post.
type PostRecord struct {
	DocumentID     string      `gorm:"primaryKey;size:36" json:"document_id"`
	PostID         string      `gorm:"size:32;index" json:"post_id"`
	Title          string      `gorm:"not null;size:500" json:"title"`
	Content        string      `gorm:"type:text" json:"content"`
	Slug           string      `gorm:"size:500;index" json:"slug"`
	Author         string      `gorm:"size:255" json:"author"`
	PublishedAt    time.Time   `json:"published_at"`
	CreatedAt      time.Time   `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime:false" json:"updated_at"`
	Categories     StringArray `gorm:"type:text[]" json:"categories"`
	OriginalID     *string     `gorm:"size:255" json:"original_id"`
	LegacyFilename *string     `gorm:"size:500" json:"legacy_filename"`
	Status         string      `gorm:"size:50;default:'PUBLISHED'" json:"status"`
	MigratedAt     time.Time   `gorm:"not null" json:"migrated_at"`
}

func NewPostRecord(documentID string, post MigratedPost) *PostRecord {
	categories := post.Categories
	if categories == nil {
		categories = StringArray{}
	}

	return &PostRecord{
		DocumentID:     documentID,
		PostID:         post.ID,
		Title:          post.Title,
		Content:        post.Content,
		Slug:           post.Slug,
		Author:         post.Author,
		PublishedAt:    post.PublishedAt,
		CreatedAt:      post.CreatedAt,
		UpdatedAt:      post.UpdatedAt,
		Categories:     categories,
		OriginalID:     post.OriginalID,
		LegacyFilename: post.LegacyFilename,
		Status:         post.Status,
		MigratedAt:     post.MigratedAt,
	}
}
