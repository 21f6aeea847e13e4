package repo

import (
	"context"

	"mediacache/internal/domain"
	"mediacache/internal/infra"
	"mediacache/internal/sqlinline"
)

// LibraryRepositoryPG reads collections and images owned by the library service.
type LibraryRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewLibraryRepository constructs the image source lookup.
func NewLibraryRepository(sql infra.SQLExecutor) *LibraryRepositoryPG {
	return &LibraryRepositoryPG{sql: sql}
}

func (r *LibraryRepositoryPG) GetCollection(ctx context.Context, collectionID string) (*domain.Collection, error) {
	var c domain.Collection
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectCollection, collectionID).Scan(&c.ID, &c.Name); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCollectionImages returns live images in filename order.
func (r *LibraryRepositoryPG) ListCollectionImages(ctx context.Context, collectionID string) ([]domain.SourceImage, error) {
	return queryList(ctx, r.sql, sqlinline.QListCollectionImages, scanImage, collectionID)
}

func (r *LibraryRepositoryPG) CountCollectionImages(ctx context.Context, collectionID string) (int, error) {
	var n int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountCollectionImages, collectionID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *LibraryRepositoryPG) GetImage(ctx context.Context, imageID string) (*domain.SourceImage, error) {
	img, err := scanImage(r.sql.QueryRow(ctx, sqlinline.QSelectImage, imageID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

func (r *LibraryRepositoryPG) ExistingImageIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := queryList(ctx, r.sql, sqlinline.QExistingImageIDs, func(row rowScanner) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	}, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

func scanImage(row rowScanner) (domain.SourceImage, error) {
	var img domain.SourceImage
	err := row.Scan(&img.ID, &img.CollectionID, &img.Path, &img.Width, &img.Height, &img.Format)
	return img, err
}

var _ domain.ImageSource = (*LibraryRepositoryPG)(nil)
