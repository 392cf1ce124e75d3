// Package monitor records episode statistics for environment instances and
// persists them as openaigym.* artifact files in a training directory.
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Artifact file names written into the training directory.
const (
	StatsFile    = "openaigym.stats.json"
	ManifestFile = "openaigym.manifest.json"

	artifactPrefix = "openaigym."
)

var (
	// ErrConflictingFlags rejects a start request with both force and resume set.
	ErrConflictingFlags = errors.New("monitor: force and resume are mutually exclusive")
	// ErrAlreadyRecording rejects a start request while a session is active
	// and neither force nor resume was set.
	ErrAlreadyRecording = errors.New("monitor: already recording")
)

// Stats is the episode summary persisted to the training directory. Parallel
// slices hold one entry per completed episode; timestamps are seconds since
// the epoch, matching the upload wire format.
type Stats struct {
	EnvID                 string    `json:"env_id"`
	InitialResetTimestamp float64   `json:"initial_reset_timestamp"`
	Timestamps            []float64 `json:"timestamps"`
	EpisodeLengths        []int     `json:"episode_lengths"`
	EpisodeRewards        []float64 `json:"episode_rewards"`
}

type manifest struct {
	Stats   string   `json:"stats"`
	Videos  []string `json:"videos"`
	EnvInfo envInfo  `json:"env_info"`
}

type envInfo struct {
	EnvID string `json:"env_id"`
}

// Monitor accumulates per-episode statistics for a single environment
// instance. It is not safe for concurrent use; the owning instance serializes
// access. Artifacts hit disk on Close.
type Monitor struct {
	dir   string
	stats Stats

	episodeSteps  int
	episodeReward float64
	inEpisode     bool
}

// Start opens a recording session in dir, creating it if needed. force
// removes artifacts left by earlier sessions; resume loads them so new
// episodes append. The two flags are mutually exclusive.
func Start(dir, envID string, force, resume bool) (*Monitor, error) {
	if force && resume {
		return nil, ErrConflictingFlags
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("monitor: create training directory: %w", err)
	}

	m := &Monitor{dir: filepath.Clean(dir)}
	m.stats.EnvID = envID

	switch {
	case force:
		if err := clearArtifacts(m.dir); err != nil {
			return nil, err
		}
	case resume:
		prior, err := ReadStats(m.dir)
		switch {
		case err == nil:
			prior.EnvID = envID
			m.stats = prior
		case errors.Is(err, os.ErrNotExist):
			// Nothing recorded yet; resume degrades to a fresh session.
		default:
			return nil, err
		}
	}

	log.Debug().
		Str("dir", m.dir).
		Str("env_id", envID).
		Bool("force", force).
		Bool("resume", resume).
		Int("prior_episodes", len(m.stats.EpisodeLengths)).
		Msg("monitor session started")
	return m, nil
}

// Directory reports where this session records to.
func (m *Monitor) Directory() string {
	return m.dir
}

// RecordReset finalizes any open episode and begins a new one.
func (m *Monitor) RecordReset() {
	m.finishEpisode()
	if m.stats.InitialResetTimestamp == 0 {
		m.stats.InitialResetTimestamp = now()
	}
	m.inEpisode = true
}

// RecordStep accumulates one transition into the open episode.
func (m *Monitor) RecordStep(reward float64, done bool) {
	if !m.inEpisode {
		m.inEpisode = true
	}
	m.episodeSteps++
	m.episodeReward += reward
	if done {
		m.finishEpisode()
	}
}

// Close finalizes the open episode and writes the stats and manifest
// artifacts to the training directory.
func (m *Monitor) Close() error {
	m.finishEpisode()

	// Empty sessions still encode the batch fields as arrays, not null.
	if m.stats.Timestamps == nil {
		m.stats.Timestamps = []float64{}
	}
	if m.stats.EpisodeLengths == nil {
		m.stats.EpisodeLengths = []int{}
	}
	if m.stats.EpisodeRewards == nil {
		m.stats.EpisodeRewards = []float64{}
	}

	if err := writeJSON(filepath.Join(m.dir, StatsFile), m.stats); err != nil {
		return err
	}
	man := manifest{
		Stats:   StatsFile,
		Videos:  []string{},
		EnvInfo: envInfo{EnvID: m.stats.EnvID},
	}
	if err := writeJSON(filepath.Join(m.dir, ManifestFile), man); err != nil {
		return err
	}

	log.Debug().
		Str("dir", m.dir).
		Int("episodes", len(m.stats.EpisodeLengths)).
		Msg("monitor session closed")
	return nil
}

func (m *Monitor) finishEpisode() {
	if !m.inEpisode || m.episodeSteps == 0 {
		m.inEpisode = false
		m.episodeSteps = 0
		m.episodeReward = 0
		return
	}
	m.stats.EpisodeLengths = append(m.stats.EpisodeLengths, m.episodeSteps)
	m.stats.EpisodeRewards = append(m.stats.EpisodeRewards, m.episodeReward)
	m.stats.Timestamps = append(m.stats.Timestamps, now())
	m.inEpisode = false
	m.episodeSteps = 0
	m.episodeReward = 0
}

// ReadStats loads previously recorded statistics from dir. The error wraps
// os.ErrNotExist when no stats artifact is present.
func ReadStats(dir string) (Stats, error) {
	raw, err := os.ReadFile(filepath.Join(dir, StatsFile))
	if err != nil {
		return Stats{}, fmt.Errorf("monitor: read stats: %w", err)
	}
	var s Stats
	if err := json.Unmarshal(raw, &s); err != nil {
		return Stats{}, fmt.Errorf("monitor: decode stats: %w", err)
	}
	return s, nil
}

func clearArtifacts(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("monitor: scan training directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), artifactPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("monitor: clear artifact: %w", err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("monitor: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("monitor: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
