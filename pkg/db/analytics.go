package db

import (
	"context"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

const (
	AnalyticsCollection = "analytics"
	PageViewEvent       = "page_view"
)

// Analytics accesses the analytics collection. Events are append-only.
type Analytics struct {
	*Collection[AnalyticsEvent]
	appID string
}

func NewAnalytics(backend docstore.Backend, logger *zap.Logger, appID string) *Analytics {
	return &Analytics{
		Collection: NewCollection[AnalyticsEvent](AnalyticsCollection, backend, logger),
		appID:      appID,
	}
}

// TrackPageView records a view of the given path
func (a *Analytics) TrackPageView(ctx context.Context, path string, properties map[string]string) (string, error) {
	return a.Create(ctx, AnalyticsEvent{
		Name:       PageViewEvent,
		Path:       path,
		AppID:      a.appID,
		Properties: properties,
	})
}
