// Package models defines the domain types for Othala.
package models

import "time"

// DocumentFolderMetadata describes a document folder without its content.
// Category is positional: the name of the folder's parent directory.
type DocumentFolderMetadata struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	MainFile   string    `json:"main_file"`
	ImageCount int       `json:"image_count"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// DocumentSummary is a lightweight representation returned by list operations.
type DocumentSummary struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
