package chess

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Level is a named difficulty.
type Level int

const (
	Easy Level = iota
	Medium
	Hard
)

func (l Level) String() string {
	switch l {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Levels lists every defined level in ascending strength.
func Levels() []Level { return []Level{Easy, Medium, Hard} }

// ParseLevel accepts the level names plus a few aliases.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "beginner", "0":
		return Easy, nil
	case "medium", "intermediate", "normal", "1":
		return Medium, nil
	case "hard", "advanced", "2":
		return Hard, nil
	}
	return Easy, fmt.Errorf("unknown difficulty: %q", s)
}

// Preset holds the engine settings for a level. MoveTime is the time budget
// handed to RequestMove.
type Preset struct {
	Level      Level
	MoveTime   time.Duration
	SkillLevel int
	Elo        int
	Threads    int
	HashMB     int
	DepthCap   int
	// MultiPV lines are requested from the engine; CandidateWeights picks
	// among them, best line first.
	MultiPV          int
	CandidateWeights []float64
	BlunderMarginCP  int
}

const defaultThreads = 1

var presetMu sync.RWMutex

var defaultPresets = map[Level]Preset{
	Easy: {
		Level:      Easy,
		MoveTime:   5 * time.Millisecond,
		SkillLevel: 0,
		Elo:        1320,
		Threads:    defaultThreads,
		HashMB:     16,
		DepthCap:   4,

		MultiPV:          3,
		CandidateWeights: []float64{0.55, 0.3, 0.15},
		BlunderMarginCP:  250,
	},
	Medium: {
		Level:      Medium,
		MoveTime:   100 * time.Millisecond,
		SkillLevel: 8,
		Elo:        1600,
		Threads:    defaultThreads,
		HashMB:     32,
		DepthCap:   0,

		MultiPV:          2,
		CandidateWeights: []float64{0.85, 0.15},
		BlunderMarginCP:  80,
	},
	Hard: {
		Level:      Hard,
		MoveTime:   200 * time.Millisecond,
		SkillLevel: 20,
		Elo:        0,
		Threads:    defaultThreads,
		HashMB:     64,
		DepthCap:   0,
		MultiPV:    1,
	},
}

// PresetFor returns the current preset for l. Unknown levels fall back to Easy.
func PresetFor(l Level) Preset {
	presetMu.RLock()
	defer presetMu.RUnlock()
	if p, ok := defaultPresets[l]; ok {
		return p
	}
	return defaultPresets[Easy]
}

// MoveTime is shorthand for PresetFor(l).MoveTime.
func MoveTime(l Level) time.Duration { return PresetFor(l).MoveTime }

// SetMoveTime overrides the time budget of a level.
func SetMoveTime(l Level, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("move time for %s must be > 0: %s", l, d)
	}
	presetMu.Lock()
	defer presetMu.Unlock()
	p, ok := defaultPresets[l]
	if !ok {
		return fmt.Errorf("unknown difficulty: %s", l)
	}
	p.MoveTime = d
	defaultPresets[l] = p
	return nil
}

// ValidatePreset checks the ranges a UCI engine accepts.
func ValidatePreset(p Preset) error {
	switch {
	case p.SkillLevel < 0 || p.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", p.SkillLevel)
	case p.Threads <= 0:
		return fmt.Errorf("threads must be > 0: %d", p.Threads)
	case p.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", p.HashMB)
	case p.MoveTime < 0:
		return fmt.Errorf("move time must be >= 0: %s", p.MoveTime)
	case p.DepthCap < 0:
		return fmt.Errorf("depth cap must be >= 0: %d", p.DepthCap)
	case p.Elo < 0:
		return fmt.Errorf("elo must be >= 0: %d", p.Elo)
	case p.MultiPV < 0 || p.MultiPV > 8:
		return fmt.Errorf("multipv %d out of range 0-8", p.MultiPV)
	case len(p.CandidateWeights) > max(p.MultiPV, 1):
		return fmt.Errorf("%d candidate weights for multipv %d", len(p.CandidateWeights), p.MultiPV)
	}
	for _, w := range p.CandidateWeights {
		if w < 0 {
			return fmt.Errorf("candidate weight must be >= 0: %v", w)
		}
	}
	return nil
}

func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
