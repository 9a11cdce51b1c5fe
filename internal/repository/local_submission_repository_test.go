package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-portal-api/pkg/storage"
)

func TestLocalSubmissionRepositorySaveAndList(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewLocalSubmissionRepository(store)

	first := sampleSubmission()
	second := sampleSubmission()
	second.ID = "sub-2"

	require.NoError(t, repo.Save(context.Background(), first))
	require.NoError(t, repo.Save(context.Background(), second))

	names, err := store.List("9A")
	require.NoError(t, err)
	assert.Equal(t, []string{"9A/2024-05-01/sub-1.json", "9A/2024-05-01/sub-2.json"}, names)

	stored, err := repo.List(context.Background(), "9A", "2024-05-01")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, first.Students, stored[0].Students)
	assert.True(t, first.SubmittedAt.Equal(stored[0].SubmittedAt))
}

func TestLocalSubmissionRepositoryRejectsTraversal(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewLocalSubmissionRepository(store)

	submission := sampleSubmission()
	submission.ClassID = ".."
	err = repo.Save(context.Background(), submission)
	require.NoError(t, err)

	submission.ClassID = "../../etc"
	require.NoError(t, repo.Save(context.Background(), submission))
	names, err := store.List(".")
	require.NoError(t, err)
	for _, name := range names {
		assert.NotContains(t, name, "../")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(repo.Save(ctx, sampleSubmission()), context.Canceled))
}
