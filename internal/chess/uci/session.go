package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NoMove is what engines print after "bestmove" when there is nothing to play.
const NoMove = "(none)"

const (
	handshakeTimeout = 4 * time.Second
	resetAttempts    = 3
	resetBackoff     = 150 * time.Millisecond
	searchGrace      = 2 * time.Second
	// mateScoreCP stands in for "score mate N" so mates sort above any
	// centipawn score.
	mateScoreCP = 30000
)

type Options struct {
	Threads    int
	SkillLevel int
	HashMB     int
	MultiPV    int
	// Elo enables UCI_LimitStrength when positive.
	Elo int
}

func (o Options) validate() error {
	switch {
	case o.SkillLevel < 0 || o.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", o.SkillLevel)
	case o.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", o.HashMB)
	case o.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", o.MultiPV)
	case o.Elo < 0:
		return fmt.Errorf("elo must be >= 0: %d", o.Elo)
	}
	return nil
}

func (o Options) setoptions() []string {
	out := []string{
		"setoption name Threads value " + strconv.Itoa(max(o.Threads, 1)),
		"setoption name Hash value " + strconv.Itoa(o.HashMB),
		"setoption name Skill Level value " + strconv.Itoa(o.SkillLevel),
		"setoption name MultiPV value " + strconv.Itoa(o.MultiPV),
	}
	if o.Elo > 0 {
		out = append(out,
			"setoption name UCI_LimitStrength value true",
			"setoption name UCI_Elo value "+strconv.Itoa(o.Elo),
		)
	}
	return out
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

// wait bounds how long a search may take to answer with bestmove.
func (l Limits) wait() time.Duration {
	switch {
	case l.MoveTimeMillis > 0:
		return time.Duration(l.MoveTimeMillis)*time.Millisecond + searchGrace
	case l.Depth > 0:
		return min(max(time.Duration(l.Depth)*300*time.Millisecond, 6*time.Second), 20*time.Second)
	}
	return 6 * time.Second
}

// Candidate is one ranked line from a MultiPV search.
type Candidate struct {
	Move      string
	EvalCP    int
	Principal []string
}

type SearchRequest struct {
	// FEN is the position; empty means the standard start.
	FEN    string
	Moves  []string
	Limits Limits
	// Go replaces the go command built from Limits when set.
	Go []string
}

type SearchResponse struct {
	// Candidates are ordered by MultiPV rank.
	Candidates []Candidate
	// BestMove is NoMove when the engine found nothing to play.
	BestMove string
}

// Session is one running engine process. Searches on a session are
// serialised.
type Session struct {
	log *zap.Logger

	writeMu sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser

	// lines is fed by a single reader goroutine and closed at EOF.
	lines   chan string
	readErr error

	searchMu sync.Mutex
}

// NewSession starts binaryPath and runs the uci handshake. The process
// outlives ctx; only the handshake is bounded by it.
func NewSession(ctx context.Context, binaryPath string, opt Options, logger *zap.Logger) (*Session, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start engine %s: %w", binaryPath, err)
	}

	s := &Session{
		log:   logger.With(zap.String("engine", binaryPath)),
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 64),
	}
	go s.read(stdout)

	hctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := s.exchange(hctx, "uci", "uciok"); err != nil {
		_ = s.Close()
		return nil, err
	}
	for _, line := range opt.setoptions() {
		if err := s.send(line); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("apply options: %w", err)
		}
	}
	if err := s.exchange(hctx, "isready", "readyok"); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// EnsureReady pings the engine with isready.
func (s *Session) EnsureReady(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	return s.exchange(rctx, "isready", "readyok")
}

// NewGame clears engine state between unrelated positions.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame"); err != nil {
		return err
	}
	var err error
	for attempt := 1; attempt <= resetAttempts; attempt++ {
		if err = s.EnsureReady(ctx); err == nil {
			return nil
		}
		s.log.Warn("uci_ready_retry", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(resetBackoff):
		}
	}
	return err
}

// Search sends the position and a go command, then collects info lines until
// bestmove arrives.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()

	goTokens := req.Go
	if len(goTokens) == 0 {
		var err error
		if goTokens, err = buildGoTokens(req.Limits); err != nil {
			return SearchResponse{}, err
		}
	}
	position := buildPositionCommand(req.FEN, req.Moves)
	goLine := strings.Join(goTokens, " ")
	if err := s.send(strings.TrimSuffix(position, "\n")); err != nil {
		return SearchResponse{}, err
	}
	if err := s.send(goLine); err != nil {
		return SearchResponse{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, req.Limits.wait())
	defer cancel()

	ranked := make(map[int]Candidate)
	for {
		line, err := s.readLine(sctx)
		if err != nil {
			s.log.Warn("uci_search_read_failed",
				zap.String("fen", req.FEN),
				zap.String("go", goLine),
				zap.Error(err),
			)
			return SearchResponse{}, fmt.Errorf("await bestmove: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "info "):
			if rank, c, ok := parseInfo(line); ok {
				ranked[rank] = c
			}
		case strings.HasPrefix(line, "bestmove"):
			out := SearchResponse{BestMove: parseBestMove(line)}
			for _, rank := range slices.Sorted(maps.Keys(ranked)) {
				out.Candidates = append(out.Candidates, ranked[rank])
			}
			return out, nil
		}
	}
}

// Close sends quit and reaps the process.
func (s *Session) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "quit\n")
		_ = s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd == nil {
		return nil
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	err := s.cmd.Wait()
	s.cmd = nil
	return err
}

func (s *Session) send(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.stdin == nil {
		return io.ErrClosedPipe
	}
	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

// exchange sends cmd and waits for a line starting with reply.
func (s *Session) exchange(ctx context.Context, cmd, reply string) error {
	if err := s.send(cmd); err != nil {
		return err
	}
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return fmt.Errorf("await %s: %w", reply, err)
		}
		if strings.HasPrefix(line, reply) {
			return nil
		}
	}
}

// read is the only reader of stdout, so a timed-out readLine never leaves a
// goroutine racing the next one.
func (s *Session) read(stdout io.Reader) {
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			s.lines <- line
		}
	}
	s.readErr = sc.Err()
	close(s.lines)
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			if s.readErr != nil {
				return "", s.readErr
			}
			return "", io.EOF
		}
		return line, nil
	}
}

func buildPositionCommand(fen string, moves []string) string {
	var b strings.Builder
	if fen = strings.TrimSpace(fen); fen == "" || fen == "startpos" {
		b.WriteString("position startpos")
	} else {
		b.WriteString("position fen " + fen)
	}
	if len(moves) > 0 {
		b.WriteString(" moves " + strings.Join(moves, " "))
	}
	b.WriteString("\n")
	return b.String()
}

func buildGoTokens(l Limits) ([]string, error) {
	out := []string{"go"}
	for _, lim := range []struct {
		name string
		v    int
	}{
		{"depth", l.Depth},
		{"movetime", l.MoveTimeMillis},
		{"nodes", l.NodeCap},
	} {
		if lim.v > 0 {
			out = append(out, lim.name, strconv.Itoa(lim.v))
		}
	}
	if len(out) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return out, nil
}

func parseBestMove(line string) string {
	f := strings.Fields(line)
	if len(f) < 2 || f[1] == "0000" {
		return NoMove
	}
	return f[1]
}

// parseInfo reads the MultiPV rank, score and principal variation from an
// info line. Lines without a pv are skipped.
func parseInfo(line string) (int, Candidate, bool) {
	f := strings.Fields(line)
	rank := 1
	var c Candidate
	for i := 1; i < len(f); i++ {
		switch f[i] {
		case "multipv":
			if n, ok := intAt(f, i+1); ok {
				rank = n
			}
			i++
		case "score":
			if n, ok := intAt(f, i+2); ok {
				switch f[i+1] {
				case "cp":
					c.EvalCP = n
				case "mate":
					c.EvalCP = mateScoreCP
					if n < 0 {
						c.EvalCP = -mateScoreCP
					}
				}
			}
			i += 2
		case "pv":
			c.Principal = slices.Clone(f[i+1:])
			i = len(f)
		}
	}
	if len(c.Principal) == 0 {
		return 0, Candidate{}, false
	}
	c.Move = c.Principal[0]
	return rank, c, true
}

func intAt(f []string, i int) (int, bool) {
	if i >= len(f) {
		return 0, false
	}
	n, err := strconv.Atoi(f[i])
	return n, err == nil
}
