package services

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/core/status"
	"github.com/shivamksharma/devdonations/pkg/db"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL slug
func Slugify(title string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

// CreatePost records a new post. An empty slug is derived from the title;
// slugs must be unique.
func (s *Services) CreatePost(ctx context.Context, p db.BlogPost) (string, error) {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Status == "" {
		p.Status = db.PostDraft
	}
	if p.Status == db.PostPublished && p.PublishedAt == nil {
		now := s.now()
		p.PublishedAt = &now
	}

	if err := Validate(p); err != nil {
		return "", err
	}
	if err := s.checkSlug(ctx, p.Slug, ""); err != nil {
		return "", err
	}

	return s.stores.BlogPosts.Add(ctx, p)
}

// UpdatePost applies a patch to a post, checking a new slug for uniqueness
func (s *Services) UpdatePost(ctx context.Context, id string, fields db.Fields) error {
	if slug, ok := fields["slug"].(string); ok {
		if err := s.checkSlug(ctx, slug, id); err != nil {
			return err
		}
	}
	return s.Update(ctx, db.BlogPostsCollection, id, fields)
}

func (s *Services) checkSlug(ctx context.Context, slug, exceptID string) error {
	posts, err := s.stores.BlogPosts.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch posts: %w", err)
	}
	for _, p := range posts {
		if p.Slug == slug && p.ID != exceptID {
			return fmt.Errorf("%q: %w", slug, ErrSlugTaken)
		}
	}
	return nil
}

// PublishPost moves a post to published
func (s *Services) PublishPost(ctx context.Context, id string) error {
	return s.changePostStatus(ctx, id, db.PostPublished)
}

// changePostStatus sets publishedAt the first time a post is published
func (s *Services) changePostStatus(ctx context.Context, id string, to db.PostStatus) error {
	post, err := find(ctx, s.stores.BlogPosts, id)
	if err != nil {
		return err
	}
	if err := status.BlogPost.Check(string(post.Status), string(to)); err != nil {
		return err
	}
	if post.Status == to {
		return nil
	}

	fields := db.Fields{"status": string(to)}
	if to == db.PostPublished && post.PublishedAt == nil {
		fields["publishedAt"] = s.now()
	}
	if err := s.stores.BlogPosts.Mutate(ctx, id, fields); err != nil {
		return fmt.Errorf("failed to update blog post status: %w", err)
	}

	s.logger.Info("Status changed",
		zap.String("collection", db.BlogPostsCollection),
		zap.String("id", id),
		zap.String("from", string(post.Status)),
		zap.String("to", string(to)))
	return nil
}

// UploadFeaturedImage stores an image and points the post's featuredImage at
// it. The previous image is deleted on a best-effort basis.
func (s *Services) UploadFeaturedImage(ctx context.Context, postID string, image io.Reader, filename, contentType string, size int64) (string, error) {
	if s.media == nil {
		return "", ErrMediaDisabled
	}

	post, err := find(ctx, s.stores.BlogPosts, postID)
	if err != nil {
		return "", err
	}

	_, url, err := s.media.UploadImage(ctx, image, filename, contentType, size)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	if err := s.stores.BlogPosts.Mutate(ctx, postID, db.Fields{"featuredImage": url}); err != nil {
		if delErr := s.media.DeleteImage(ctx, url); delErr != nil {
			s.logger.Warn("Failed to delete orphaned image", zap.String("url", url), zap.Error(delErr))
		}
		return "", fmt.Errorf("failed to set featured image: %w", err)
	}

	if post.FeaturedImage != "" {
		if err := s.media.DeleteImage(ctx, post.FeaturedImage); err != nil {
			s.logger.Warn("Failed to delete previous featured image",
				zap.String("url", post.FeaturedImage),
				zap.Error(err))
		}
	}

	s.logger.Info("Featured image uploaded", zap.String("post_id", postID), zap.String("url", url))
	return url, nil
}
