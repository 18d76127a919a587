package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 1

// Replay is a finished or running game stored as its starting state plus
// the change log. Any intermediate state is rebuilt by applying a prefix of
// the log to a copy of the start.
type Replay struct {
	GameID       string
	Initial      *State
	Changes      []Change
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates a replay from a starting state and the changes after it.
func NewReplay(gameID string, initial *State, changes []Change) *Replay {
	return &Replay{
		GameID:  gameID,
		Initial: initial.Clone(),
		Changes: append([]Change(nil), changes...),
	}
}

// Record appends a change to the replay.
func (r *Replay) Record(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Changes = append(r.Changes, c)
}

// Size returns the number of positions: the start plus one per change.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Changes) + 1
}

// StateAt rebuilds the state after the first index changes. Index 0 is the
// starting state.
func (r *Replay) StateAt(index int) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stateAt(index)
}

func (r *Replay) stateAt(index int) (*State, error) {
	if index < 0 || index > len(r.Changes) {
		return nil, fmt.Errorf("replay index %d out of range [0,%d]", index, len(r.Changes))
	}
	s := r.Initial.Clone()
	for _, c := range r.Changes[:index] {
		if err := s.ApplyChange(c); err != nil {
			return nil, fmt.Errorf("replay %s: %w", r.GameID, err)
		}
	}
	return s, nil
}

// Start rewinds to the starting state.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CurrentIndex = 0
}

// Next moves forward one change and returns the state there, or nil at the
// end.
func (r *Replay) Next() *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CurrentIndex >= len(r.Changes) {
		return nil
	}
	r.CurrentIndex++
	s, _ := r.stateAt(r.CurrentIndex)
	return s
}

// Previous moves back one change, or returns nil at the start.
func (r *Replay) Previous() *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CurrentIndex == 0 {
		return nil
	}
	r.CurrentIndex--
	s, _ := r.stateAt(r.CurrentIndex)
	return s
}

// Skip moves by count changes, clamped to the replay bounds.
func (r *Replay) Skip(count int) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CurrentIndex = max(0, min(r.CurrentIndex+count, len(r.Changes)))
	s, _ := r.stateAt(r.CurrentIndex)
	return s
}

type replayMetadata struct {
	GameID      string
	Timestamp   time.Time
	Version     int
	ChangeCount int
}

// SaveToFile writes the replay to <directory>/<game id>.replay as gzip gob.
func (r *Replay) SaveToFile(directory string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gz)

	metadata := replayMetadata{
		GameID:      r.GameID,
		Timestamp:   time.Now(),
		Version:     replayVersion,
		ChangeCount: len(r.Changes),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := encoder.Encode(r.Initial); err != nil {
		return "", fmt.Errorf("failed to encode initial state: %w", err)
	}
	for i := range r.Changes {
		if err := encoder.Encode(&r.Changes[i]); err != nil {
			return "", fmt.Errorf("failed to encode change %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to flush replay: %w", err)
	}
	return filename, nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()
	decoder := gob.NewDecoder(gz)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	var initial State
	if err := decoder.Decode(&initial); err != nil {
		return nil, fmt.Errorf("failed to decode initial state: %w", err)
	}
	initial.ensureMaps()

	replay := &Replay{GameID: metadata.GameID, Initial: &initial}
	for i := 0; i < metadata.ChangeCount; i++ {
		var c Change
		if err := decoder.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode change %d: %w", i, err)
		}
		replay.Changes = append(replay.Changes, c)
	}
	return replay, nil
}

// ReplayArchiver writes finished games to a directory.
type ReplayArchiver struct {
	logger *zap.Logger
	dir    string
}

// NewReplayArchiver returns an archiver writing to dir. An empty dir
// disables archiving.
func NewReplayArchiver(logger *zap.Logger, dir string) *ReplayArchiver {
	return &ReplayArchiver{logger: logger, dir: dir}
}

// Enabled reports whether replays are written.
func (ra *ReplayArchiver) Enabled() bool {
	return ra != nil && ra.dir != ""
}

// Save writes the replay of a game.
func (ra *ReplayArchiver) Save(replay *Replay) error {
	if !ra.Enabled() {
		return nil
	}
	filename, err := replay.SaveToFile(ra.dir)
	if err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}
	if ra.logger != nil {
		ra.logger.Info("saved replay to disk",
			zap.String("game_id", replay.GameID),
			zap.Int("change_count", replay.Size()-1),
			zap.String("file", filename),
		)
	}
	return nil
}

// Load reads a saved replay.
func (ra *ReplayArchiver) Load(gameID string) (*Replay, error) {
	replay, err := LoadReplayFromFile(ra.dir, gameID)
	if err != nil {
		return nil, err
	}
	if ra.logger != nil {
		ra.logger.Info("loaded replay from disk",
			zap.String("game_id", gameID),
			zap.Int("change_count", replay.Size()-1),
		)
	}
	return replay, nil
}
