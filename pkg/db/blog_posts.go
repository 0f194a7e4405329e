package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

const BlogPostsCollection = "blogPosts"

// BlogPosts accesses the blog posts collection
type BlogPosts struct {
	*Collection[BlogPost]
}

func NewBlogPosts(backend docstore.Backend, logger *zap.Logger) *BlogPosts {
	return &BlogPosts{NewCollection(BlogPostsCollection, backend, logger,
		WithUpdatable[BlogPost]("slug", "title", "summary", "content", "authorId", "authorName",
			"status", "featuredImage", "tags", "publishedAt"),
		WithDefaults(func(p *BlogPost, _ time.Time) {
			if p.Status == "" {
				p.Status = PostDraft
			}
			if p.Tags == nil {
				p.Tags = []string{}
			}
		}),
	)}
}

// GetBySlug retrieves a post by slug regardless of status
func (b *BlogPosts) GetBySlug(ctx context.Context, slug string) (BlogPost, error) {
	post, err := b.First(ctx, docstore.Filter{Field: "slug", Value: slug})
	if err != nil {
		return BlogPost{}, fmt.Errorf("failed to get post %q: %w", slug, err)
	}
	return post, nil
}

// GetPublishedBySlug retrieves a published post by slug. Drafts and archived
// posts are reported as not found.
func (b *BlogPosts) GetPublishedBySlug(ctx context.Context, slug string) (BlogPost, error) {
	post, err := b.First(ctx,
		docstore.Filter{Field: "slug", Value: slug},
		docstore.Filter{Field: "status", Value: string(PostPublished)},
	)
	if err != nil {
		return BlogPost{}, fmt.Errorf("failed to get published post %q: %w", slug, err)
	}
	return post, nil
}

// ListPublished retrieves every published post, newest first
func (b *BlogPosts) ListPublished(ctx context.Context) ([]BlogPost, error) {
	return b.List(ctx, docstore.Filter{Field: "status", Value: string(PostPublished)})
}
