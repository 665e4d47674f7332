package service

import (
	"context"
	"fmt"

	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/repository"
	"github.com/damoang/image-organizer/pkg/elasticsearch"
	pkglogger "github.com/damoang/image-organizer/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// reindexWorkers concurrent index requests during a rebuild
const reindexWorkers = 4

func indexDocument(m *domain.Media) elasticsearch.MediaDocument {
	return elasticsearch.MediaDocument{
		ID:          m.ID,
		Title:       m.Title,
		Caption:     m.Caption,
		Description: domain.StripTags(m.Description),
		Status:      string(m.Status),
	}
}

// Reindex pushes every published media record to the search index and
// returns how many documents were written
func Reindex(ctx context.Context, repo repository.MediaRepository, index MediaIndex) (int, error) {
	page, err := repo.FindPage(ctx, domain.MediaQuery{Page: 1})
	if err != nil {
		return 0, fmt.Errorf("load media: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexWorkers)
	for i := range page.Items {
		m := &page.Items[i]
		g.Go(func() error {
			if err := index.IndexMedia(gctx, indexDocument(m)); err != nil {
				return fmt.Errorf("index media %d: %w", m.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	pkglogger.GetLogger().Info().Int("documents", len(page.Items)).Msg("search index rebuilt")
	return len(page.Items), nil
}
