package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the fbug banner followed by the device being supervised.
func PrintBanner(w io.Writer, device, codename string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Amber/Orange)
	s1 := termenv.String("   __ _                 ").Foreground(p.Color("#fbbf24"))
	s2 := termenv.String("  / _| |__  _   _  __ _ ").Foreground(p.Color("#f59e0b"))
	s3 := termenv.String(" | |_| '_ \\| | | |/ _` |").Foreground(p.Color("#f97316"))
	s4 := termenv.String(" |  _| |_) | |_| | (_| |").Foreground(p.Color("#ea580c"))
	s5 := termenv.String(" |_| |_.__/ \\__,_|\\__, |").Foreground(p.Color("#dc2626"))
	s6 := termenv.String("                  |___/ ").Foreground(p.Color("#b91c1c"))

	fmt.Fprintln(w)
	for _, s := range []termenv.Style{s1, s2, s3, s4, s5, s6} {
		fmt.Fprintln(w, s)
	}
	if device != "" {
		name := termenv.String(device).Bold()
		if codename != "" {
			fmt.Fprintf(w, "\n  %s (%s)\n", name, codename)
		} else {
			fmt.Fprintf(w, "\n  %s\n", name)
		}
	}
	fmt.Fprintln(w)
}
