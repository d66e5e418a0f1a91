package presets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaminer/jobsync/app/session"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "presets.yml")
	require.NoError(t, os.WriteFile(fname, []byte(body), 0o600))
	return fname
}

func TestLoad(t *testing.T) {
	fname := writeFile(t, `
audio:
  format: opus
  bitrate: "160"
video:
  height: none
  codec: av1
allow_playlist: true
`)
	p, err := Load(fname)
	require.NoError(t, err)
	assert.Equal(t, Presets{
		Audio:         session.AudioOptions{Format: "opus", Bitrate: "160"},
		Video:         session.VideoOptions{Height: "none", Codec: "av1"},
		AllowPlaylist: true,
	}, p)

	s := p.Apply(session.Defaults())
	assert.Equal(t, session.AudioOptions{Format: "opus", Bitrate: "160"}, s.Audio)
	assert.Equal(t, session.VideoOptions{Container: "mp4", Height: "none", Codec: "av1"}, s.Video, "empty container keeps default")
	assert.True(t, s.AllowPlaylist)
}

func TestLoad_Errors(t *testing.T) {
	tbl := []struct {
		name, body string
	}{
		{"unknown field", "audio:\n  formt: mp3\n"},
		{"bad yaml", "audio: [\n"},
		{"bad height", "video:\n  height: tall\n"},
		{"negative bitrate", "audio:\n  bitrate: \"-5\"\n"},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestApply_Empty(t *testing.T) {
	assert.Equal(t, session.Defaults(), Presets{}.Apply(session.Defaults()))
}
