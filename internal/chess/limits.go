package chess

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/boardsync/internal/chess/uci"
)

// BuildGoCommand returns the UCI "go" tokens for p. A positive budget
// replaces the preset's own move time.
func BuildGoCommand(p Preset, budget time.Duration) ([]string, error) {
	if err := ValidatePreset(p); err != nil {
		return nil, err
	}
	moveTime := p.MoveTime
	if budget > 0 {
		moveTime = budget
	}

	args := []string{"go"}
	if p.DepthCap > 0 {
		args = append(args, "depth", strconv.Itoa(p.DepthCap))
	}
	if ms := moveTime.Milliseconds(); ms > 0 {
		args = append(args, "movetime", strconv.FormatInt(ms, 10))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("preset %s does not define search limits", p.Level)
	}
	return args, nil
}

// FormatGoCommand joins BuildGoCommand's tokens.
func FormatGoCommand(p Preset, budget time.Duration) (string, error) {
	args, err := BuildGoCommand(p, budget)
	if err != nil {
		return "", err
	}
	return strings.Join(args, " "), nil
}

func optionsFromPreset(p Preset) uci.Options {
	return uci.Options{
		Threads:    p.Threads,
		SkillLevel: p.SkillLevel,
		HashMB:     p.HashMB,
		MultiPV:    max(p.MultiPV, 1),
		Elo:        p.Elo,
	}
}

func limitsFromPreset(p Preset, budget time.Duration) uci.Limits {
	moveTime := p.MoveTime
	if budget > 0 {
		moveTime = budget
	}
	return uci.Limits{
		Depth:          p.DepthCap,
		MoveTimeMillis: int(moveTime.Milliseconds()),
	}
}
