package hlt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrGameOver is returned by NextTurn when the engine closes the stream.
var ErrGameOver = errors.New("hlt: game over")

const maxLineSize = 4 << 20

// Session speaks the line-based engine protocol: one line in per turn, one
// line of commands out.
type Session struct {
	scanner *bufio.Scanner
	out     *bufio.Writer

	PlayerID int
	Width    int
	Height   int
	Initial  *Map
}

// NewSession wraps the engine's stdout (r) and stdin (w).
func NewSession(r io.Reader, w io.Writer) *Session {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Session{scanner: sc, out: bufio.NewWriter(w)}
}

// Handshake reads the player id, map size and initial map, then answers
// with the bot name.
func (s *Session) Handshake(name string) error {
	line, err := s.readLine()
	if err != nil {
		return fmt.Errorf("hlt: read player id: %w", err)
	}
	if s.PlayerID, err = strconv.Atoi(strings.TrimSpace(line)); err != nil {
		return fmt.Errorf("%w: player id %q", ErrMalformed, line)
	}

	line, err = s.readLine()
	if err != nil {
		return fmt.Errorf("hlt: read map size: %w", err)
	}
	dims := strings.Fields(line)
	if len(dims) != 2 {
		return fmt.Errorf("%w: map size %q", ErrMalformed, line)
	}
	if s.Width, err = strconv.Atoi(dims[0]); err != nil {
		return fmt.Errorf("%w: map width %q", ErrMalformed, dims[0])
	}
	if s.Height, err = strconv.Atoi(dims[1]); err != nil {
		return fmt.Errorf("%w: map height %q", ErrMalformed, dims[1])
	}

	line, err = s.readLine()
	if err != nil {
		return fmt.Errorf("hlt: read initial map: %w", err)
	}
	if s.Initial, err = ParseMap(s.Width, s.Height, line); err != nil {
		return fmt.Errorf("initial map: %w", err)
	}

	return s.writeLine(name)
}

// NextTurn blocks until the engine sends the next map. A closed stream
// yields ErrGameOver.
func (s *Session) NextTurn() (*Map, error) {
	line, err := s.readLine()
	if err != nil {
		return nil, err
	}
	return ParseMap(s.Width, s.Height, line)
}

// Send writes one turn's commands. An empty slice still sends the line the
// engine is waiting for.
func (s *Session) Send(cmds []Command) error {
	return s.writeLine(EncodeCommands(cmds))
}

func (s *Session) readLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", fmt.Errorf("hlt: read: %w", err)
		}
		return "", ErrGameOver
	}
	return s.scanner.Text(), nil
}

func (s *Session) writeLine(line string) error {
	if _, err := s.out.WriteString(line); err != nil {
		return fmt.Errorf("hlt: write: %w", err)
	}
	if err := s.out.WriteByte('\n'); err != nil {
		return fmt.Errorf("hlt: write: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("hlt: flush: %w", err)
	}
	return nil
}
