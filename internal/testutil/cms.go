package testutil

import (
	"context"
	"sync"

	"github.com/ch-Arham/NFT-Drop/internal/cms"
)

// StaticCMS is an in-memory cms.Source.
type StaticCMS struct {
	mu    sync.Mutex
	items []cms.Collection
	err   error
	calls int
}

var _ cms.Source = (*StaticCMS)(nil)

// NewStaticCMS serves items in order.
func NewStaticCMS(items ...cms.Collection) *StaticCMS {
	return &StaticCMS{items: items}
}

// Fail makes every call return err until cleared with nil.
func (s *StaticCMS) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls reports how many queries were served.
func (s *StaticCMS) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Collections implements cms.Source.
func (s *StaticCMS) Collections(context.Context) ([]cms.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]cms.Collection(nil), s.items...), nil
}

// CollectionBySlug implements cms.Source.
func (s *StaticCMS) CollectionBySlug(_ context.Context, slug string) (cms.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return cms.Collection{}, s.err
	}
	for _, c := range s.items {
		if c.Slug.Current == slug {
			return c, nil
		}
	}
	return cms.Collection{}, cms.ErrNotFound
}

// Collection builds a record with the fields the pages render.
func Collection(slug, title, address string) cms.Collection {
	return cms.Collection{
		ID:                "c-" + slug,
		Title:             title,
		Address:           address,
		Description:       title + " on chain",
		NFTCollectionName: title + " Collection",
		MainImage:         cms.ImageRef{Asset: cms.AssetRef{Ref: "image-main" + slug + "-100x100-png"}},
		PreviewImage:      cms.ImageRef{Asset: cms.AssetRef{Ref: "image-prev" + slug + "-100x100-png"}},
		Slug:              cms.Slug{Current: slug},
	}
}
