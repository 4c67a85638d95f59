package service

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/devconnect/realtime-service/internal/store"
)

// Author is the display identity attached to outgoing chat and feed events.
type Author struct {
	ID       int64
	Username string
	Avatar   string
}

// Enricher resolves author display data for event payloads.
type Enricher interface {
	Author(ctx context.Context, id int64) (Author, error)
	// AuthorPair resolves two authors concurrently (DM sender + recipient).
	AuthorPair(ctx context.Context, a, b int64) (Author, Author, error)
}

type AuthorEnricher struct {
	store store.Store
	cache *lru.Cache[int64, Author]
}

// NewAuthorEnricher provides a thread-safe enricher with an internal LRU
// cache of hot identities, so a busy chat room does not hit the store once
// per message.
func NewAuthorEnricher(s store.Store) *AuthorEnricher {
	cache, _ := lru.New[int64, Author](10000)
	return &AuthorEnricher{store: s, cache: cache}
}

func (e *AuthorEnricher) Author(ctx context.Context, id int64) (Author, error) {
	if cached, ok := e.cache.Get(id); ok {
		return cached, nil
	}

	principal, err := e.store.PrincipalByID(ctx, id)
	if err != nil {
		return Author{}, fmt.Errorf("enriching author %d: %w", id, err)
	}
	author := Author{ID: principal.ID, Username: principal.Username, Avatar: principal.Avatar}
	e.cache.Add(id, author)
	return author, nil
}

func (e *AuthorEnricher) AuthorPair(ctx context.Context, a, b int64) (Author, Author, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var resA, resB Author
	g.Go(func() error {
		var err error
		resA, err = e.Author(gCtx, a)
		return err
	})
	g.Go(func() error {
		var err error
		resB, err = e.Author(gCtx, b)
		return err
	})

	if err := g.Wait(); err != nil {
		return Author{}, Author{}, err
	}
	return resA, resB, nil
}
