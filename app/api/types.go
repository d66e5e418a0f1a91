package api

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Metadata is a preview of the source URL, fetched before committing to a download
type Metadata struct {
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Uploader  string  `json:"uploader,omitempty"`
	Artist    string  `json:"artist,omitempty"`
	Year      Text    `json:"year,omitempty"`
	Album     string  `json:"album,omitempty"`
	Genre     string  `json:"genre,omitempty"`
	Filesize  int64   `json:"filesize,omitempty"`
}

// Text is a string accepting JSON strings and numbers, null is empty
type Text string

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*t = Text(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// JobOptions are fields shared by audio and video job requests.
// Nil pointers are sent as null.
type JobOptions struct {
	URL           string  `json:"url"`
	AllowPlaylist bool    `json:"allow_playlist"`
	PlaylistItems *string `json:"playlist_items"`
	CookieText    *string `json:"cookie_text"`
	CustomTitle   *string `json:"custom_title"`
	CustomArtist  *string `json:"custom_artist"`
	CustomYear    *string `json:"custom_year"`
	CustomAlbum   *string `json:"custom_album"`
	CustomGenre   *string `json:"custom_genre"`
}

// AudioRequest is the body of POST /api/jobs/audio
type AudioRequest struct {
	JobOptions
	AudioFormat string `json:"audio_format"`
	Bitrate     string `json:"bitrate"`
}

// VideoRequest is the body of POST /api/jobs/video
type VideoRequest struct {
	JobOptions
	Container   string  `json:"container"`
	MaxHeight   *int    `json:"max_height"`
	PreferCodec *string `json:"prefer_codec"`
}

// File describes a downloaded file on the server
type File struct {
	Name  string  `json:"name"`
	Size  int64   `json:"size"`
	MTime float64 `json:"mtime"` // unix seconds with fraction
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

type filesResponse struct {
	DownloadDir string `json:"download_dir,omitempty"`
	Files       []File `json:"files"`
}

// Optional returns pointer to s or nil for empty string, used for nullable request fields
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
