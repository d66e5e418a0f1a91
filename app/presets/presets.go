// Package presets loads default form options from a yaml file, i.e.
//
//	audio:
//	  format: opus
//	  bitrate: "160"
//	video:
//	  container: mkv
//	  height: "720"
//	  codec: av1
//	allow_playlist: true
package presets

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mediaminer/jobsync/app/session"
)

// Presets are default options, empty fields keep built-in defaults
type Presets struct {
	Audio         session.AudioOptions `yaml:"audio" json:"audio,omitempty" jsonschema:"description=default audio options"`
	Video         session.VideoOptions `yaml:"video" json:"video,omitempty" jsonschema:"description=default video options"`
	AllowPlaylist bool                 `yaml:"allow_playlist" json:"allow_playlist,omitempty" jsonschema:"description=download whole playlists by default"`
}

// Load reads presets file
func Load(fname string) (Presets, error) {
	data, err := os.ReadFile(fname) //nolint:gosec // presets file name is set by the user
	if err != nil {
		return Presets{}, fmt.Errorf("can't read presets %s: %w", fname, err)
	}
	res := Presets{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&res); err != nil {
		return Presets{}, fmt.Errorf("can't parse presets %s: %w", fname, err)
	}
	if err := res.Validate(); err != nil {
		return Presets{}, fmt.Errorf("invalid presets %s: %w", fname, err)
	}
	return res, nil
}

// Validate checks values which can't be sent to the backend as is
func (p Presets) Validate() error {
	if h := p.Video.Height; h != "" && h != "none" {
		if v, err := strconv.Atoi(h); err != nil || v <= 0 {
			return fmt.Errorf("video height %q is not a positive number or \"none\"", h)
		}
	}
	if b := p.Audio.Bitrate; b != "" {
		if v, err := strconv.Atoi(b); err != nil || v <= 0 {
			return fmt.Errorf("audio bitrate %q is not a positive number", b)
		}
	}
	return nil
}

// Apply overrides options of s with non-empty presets
func (p Presets) Apply(s session.Session) session.Session {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.Audio.Format, p.Audio.Format)
	set(&s.Audio.Bitrate, p.Audio.Bitrate)
	set(&s.Video.Container, p.Video.Container)
	set(&s.Video.Height, p.Video.Height)
	set(&s.Video.Codec, p.Video.Codec)
	if p.AllowPlaylist {
		s.AllowPlaylist = true
	}
	return s
}
