package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	thumbnailDir = "thumbs"
	maxSlugLen   = 64
)

// Slug converts a collection name into a path-safe directory name: accents are
// stripped, letters lowered and every other run of characters becomes "-".
func Slug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = cases.Lower(language.Und).String(folded)

	var b strings.Builder
	dash := false
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// ArtifactKey returns the folder-relative key of an image's cache artifact.
func ArtifactKey(collectionID, collectionName, imageID, ext string) string {
	return collectionDir(collectionID, collectionName) + "/" + imageID + ext
}

// ThumbnailKey returns the folder-relative key of an image's thumbnail.
func ThumbnailKey(collectionID, collectionName, imageID, ext string) string {
	return collectionDir(collectionID, collectionName) + "/" + thumbnailDir + "/" + imageID + ext
}

func collectionDir(collectionID, collectionName string) string {
	slug := Slug(collectionName)
	if slug == "" {
		return collectionID
	}
	return slug + "-" + collectionID
}
