package service

import (
	"context"
	"errors"
	"testing"

	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/pkg/elasticsearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReindex(t *testing.T) {
	repo := new(mockMediaRepo)
	index := new(mockIndex)

	repo.On("FindPage", domain.MediaQuery{Page: 1}).Return(&domain.MediaPage{Items: []domain.Media{
		{ID: 1, Title: "Lake", Description: "<p>Calm <b>water</b></p>", Status: domain.MediaPublished},
		{ID: 2, Title: "Forest", Status: domain.MediaPublished},
	}}, nil)
	index.On("IndexMedia", elasticsearch.MediaDocument{ID: 1, Title: "Lake", Description: "Calm water", Status: string(domain.MediaPublished)}).Return(nil)
	index.On("IndexMedia", elasticsearch.MediaDocument{ID: 2, Title: "Forest", Status: string(domain.MediaPublished)}).Return(nil)

	n, err := Reindex(context.Background(), repo, index)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	index.AssertNumberOfCalls(t, "IndexMedia", 2)
}

func TestReindex_IndexFailure(t *testing.T) {
	repo := new(mockMediaRepo)
	index := new(mockIndex)

	repo.On("FindPage", mock.Anything).Return(&domain.MediaPage{Items: []domain.Media{{ID: 1}}}, nil)
	index.On("IndexMedia", mock.Anything).Return(errors.New("cluster unavailable"))

	_, err := Reindex(context.Background(), repo, index)
	assert.ErrorContains(t, err, "index media 1")
}
