package color

import (
	"fmt"
	"os"

	"github.com/muesli/termenv"
)

// ANSI palette indexes
const (
	Red     = "1"
	Green   = "2"
	Yellow  = "3"
	Blue    = "4"
	Magenta = "5"
	Cyan    = "6"
	Gray    = "8"

	BrightRed = "9"
)

var profile = termenv.ANSI

func init() {
	if os.Getenv("NO_COLOR") != "" || !isTerminal() {
		profile = termenv.Ascii
	}
}

func isTerminal() bool {
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}

func EnableColor(enable bool) {
	profile = termenv.Ascii
	if enable {
		profile = termenv.ANSI
	}
}

func IsColorEnabled() bool {
	return profile != termenv.Ascii
}

func Colorize(color, text string) string {
	return profile.String(text).Foreground(profile.Color(color)).String()
}

func RedText(text string) string {
	return Colorize(Red, text)
}

func BrightRedText(text string) string {
	return Colorize(BrightRed, text)
}

func GreenText(text string) string {
	return Colorize(Green, text)
}

func YellowText(text string) string {
	return Colorize(Yellow, text)
}

func BlueText(text string) string {
	return Colorize(Blue, text)
}

func MagentaText(text string) string {
	return Colorize(Magenta, text)
}

func CyanText(text string) string {
	return Colorize(Cyan, text)
}

func GrayText(text string) string {
	return Colorize(Gray, text)
}

func BoldText(text string) string {
	return profile.String(text).Bold().String()
}

func Error(message string) string {
	if !IsColorEnabled() {
		return message
	}
	return BrightRedText("Error: ") + message
}

func Success(message string) string {
	if !IsColorEnabled() {
		return message
	}
	return GreenText("Success: ") + message
}

// Heading renders a section banner such as "=== Program Output ===".
func Heading(title string) string {
	return GreenText(fmt.Sprintf("=== %s ===", title))
}

// Address renders a program counter.
func Address(pc int) string {
	return CyanText(fmt.Sprintf("%04d", pc))
}

// FaultAt renders a fault line with its program counter highlighted.
func FaultAt(pc int, message string) string {
	if !IsColorEnabled() {
		return fmt.Sprintf("Fault at %04d: %s", pc, message)
	}

	return fmt.Sprintf("%s at %s: %s",
		BrightRedText(BoldText("Fault")),
		Address(pc),
		message)
}
