package hlt

import (
	"math"
	"strconv"
	"strings"
)

// CommandKind identifies the three commands the engine accepts.
type CommandKind byte

const (
	CmdThrust CommandKind = 't'
	CmdDock   CommandKind = 'd'
	CmdUndock CommandKind = 'u'
)

// Command is one ship order for the current turn.
type Command struct {
	Kind   CommandKind
	Ship   int
	Speed  int
	Angle  int
	Planet int
}

// Thrust moves a ship. Speed is clamped to [0, MaxSpeed] and the angle
// normalised to [0, 360).
func Thrust(ship, speed, angle int) Command {
	speed = max(0, min(speed, MaxSpeed))
	angle = int(NormalizeDegrees(float64(angle)))
	return Command{Kind: CmdThrust, Ship: ship, Speed: speed, Angle: angle}
}

// ThrustFloat rounds a continuous (speed, heading) pair the way the engine
// expects: speed floored, heading rounded to the nearest degree.
func ThrustFloat(ship int, speed, heading float64) Command {
	return Thrust(ship, int(math.Floor(speed)), int(math.Round(heading)))
}

// Dock docks a ship to a planet.
func Dock(ship, planet int) Command {
	return Command{Kind: CmdDock, Ship: ship, Planet: planet}
}

// Undock releases a docked ship.
func Undock(ship int) Command {
	return Command{Kind: CmdUndock, Ship: ship}
}

func (c Command) String() string {
	var b strings.Builder
	c.appendTo(&b)
	return b.String()
}

func (c Command) appendTo(b *strings.Builder) {
	b.WriteByte(byte(c.Kind))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(c.Ship))
	switch c.Kind {
	case CmdThrust:
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(c.Speed))
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(c.Angle))
	case CmdDock:
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(c.Planet))
	}
}

// EncodeCommands joins commands into the single line sent to the engine.
func EncodeCommands(cmds []Command) string {
	var b strings.Builder
	b.Grow(len(cmds) * 12)
	for i, c := range cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		c.appendTo(&b)
	}
	return b.String()
}
