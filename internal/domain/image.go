package domain

// Collection is the read-only view of a library collection.
type Collection struct {
	ID   string
	Name string
}

// SourceImage describes an original library image that artifacts derive from.
type SourceImage struct {
	ID           string
	CollectionID string
	Path         string
	Width        int
	Height       int
	Format       string
}
