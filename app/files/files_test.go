package files

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaminer/jobsync/app/api"
	"github.com/mediaminer/jobsync/app/files/mocks"
)

func TestCache_Refresh(t *testing.T) {
	lister := &mocks.ListerMock{ListFilesFunc: func(context.Context) ([]api.File, error) {
		return []api.File{{Name: "old.mp3", MTime: 100}, {Name: "new.mp4", MTime: 300}, {Name: "mid.m4a", MTime: 200}}, nil
	}}
	c := New(lister)
	assert.Empty(t, c.Files())
	assert.True(t, c.Updated().IsZero())

	notified := 0
	c.Subscribe(func() { notified++ })
	require.NoError(t, c.Refresh(t.Context()))

	files := c.Files()
	require.Len(t, files, 3)
	assert.Equal(t, []string{"new.mp4", "mid.m4a", "old.mp3"}, []string{files[0].Name, files[1].Name, files[2].Name})
	assert.Equal(t, 1, notified)
	assert.False(t, c.Updated().IsZero())

	files[0].Name = "changed"
	assert.Equal(t, "new.mp4", c.Files()[0].Name, "returns copy")
}

func TestCache_RefreshErrorKeepsListing(t *testing.T) {
	fail := false
	lister := &mocks.ListerMock{ListFilesFunc: func(context.Context) ([]api.File, error) {
		if fail {
			return nil, errors.New("backend down")
		}
		return []api.File{{Name: "a.mp3"}}, nil
	}}
	c := New(lister)
	require.NoError(t, c.Refresh(t.Context()))
	fail = true
	err := c.Refresh(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
	assert.Len(t, c.Files(), 1)
}

func TestCache_Clear(t *testing.T) {
	files := []api.File{{Name: "a.mp3"}}
	lister := &mocks.ListerMock{
		ListFilesFunc:  func(context.Context) ([]api.File, error) { return files, nil },
		ClearFilesFunc: func(context.Context) error { files = nil; return nil },
	}
	c := New(lister)
	require.NoError(t, c.Refresh(t.Context()))
	require.Len(t, c.Files(), 1)

	require.NoError(t, c.Clear(t.Context()))
	assert.Empty(t, c.Files())
	assert.Len(t, lister.ClearFilesCalls(), 1)
	assert.Len(t, lister.ListFilesCalls(), 2, "refreshed after clear")

	lister.ClearFilesFunc = func(context.Context) error { return errors.New("forbidden") }
	require.Error(t, c.Clear(t.Context()))
	assert.Len(t, lister.ListFilesCalls(), 2, "no refresh on failed clear")
}

func TestCache_Run(t *testing.T) {
	lister := &mocks.ListerMock{ListFilesFunc: func(context.Context) ([]api.File, error) {
		return []api.File{{Name: "a.mp3"}}, nil
	}}
	c := New(lister)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, "@every 1s") }()

	require.Eventually(t, func() bool { return len(lister.ListFilesCalls()) > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Len(t, c.Files(), 1)
}

func TestCache_RunBadSpec(t *testing.T) {
	c := New(&mocks.ListerMock{})
	err := c.Run(t.Context(), "not a spec")
	require.Error(t, err)
}
