package output

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorMode represents the color output mode
type ColorMode int

const (
	// ColorAuto enables colors if output is a TTY
	ColorAuto ColorMode = iota
	// ColorAlways forces colors on
	ColorAlways
	// ColorNever disables colors
	ColorNever
)

type colorFunc func(format string, a ...interface{}) string

// Colors holds the color functions for the station listing
type Colors struct {
	Header   colorFunc
	Name     colorFunc
	Price    colorFunc
	Cheapest colorFunc
	Open     colorFunc
	Closed   colorFunc
	Muted    colorFunc
}

// NewColors creates a new Colors instance based on the color mode
func NewColors(mode ColorMode) *Colors {
	useColors := false
	switch mode {
	case ColorAlways:
		useColors = true
		color.NoColor = false
	case ColorNever:
		useColors = false
	case ColorAuto:
		useColors = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	if !useColors {
		noColor := func(format string, a ...interface{}) string {
			if len(a) == 0 {
				return format
			}
			return fmt.Sprintf(format, a...)
		}
		return &Colors{
			Header:   noColor,
			Name:     noColor,
			Price:    noColor,
			Cheapest: noColor,
			Open:     noColor,
			Closed:   noColor,
			Muted:    noColor,
		}
	}

	return &Colors{
		Header:   color.New(color.FgWhite, color.Bold).SprintfFunc(),
		Name:     color.New(color.FgCyan, color.Bold).SprintfFunc(),
		Price:    color.New(color.FgYellow).SprintfFunc(),
		Cheapest: color.New(color.FgGreen, color.Bold).SprintfFunc(),
		Open:     color.New(color.FgGreen).SprintfFunc(),
		Closed:   color.New(color.FgRed).SprintfFunc(),
		Muted:    color.New(color.FgHiBlack).SprintfFunc(),
	}
}

// ParseColorMode parses a color mode string
func ParseColorMode(s string) ColorMode {
	switch s {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}
