// Package console renders the bridge's terminal presentation: a startup
// banner and a running log of job outcomes.
package console

import (
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/xvzc/printbridge/internal/events"
)

type Info struct {
	Version    string
	Addr       string
	URL        string
	EventsAddr string
	MDNS       string
}

func PrintBanner(w io.Writer, info Info) error {
	cyan := putils.LettersFromStringWithStyle("Print", pterm.NewStyle(pterm.FgCyan))
	purple := putils.LettersFromStringWithStyle("Bridge", pterm.NewStyle(pterm.FgLightMagenta))
	if err := pterm.DefaultBigText.WithWriter(w).WithLetters(cyan, purple).Render(); err != nil {
		return err
	}

	items := []pterm.BulletListItem{
		{Level: 0, Text: "VERSION : " + info.Version},
		{Level: 0, Text: "LISTEN  : " + info.Addr},
		{Level: 0, Text: "URL     : " + info.URL},
	}

	if info.EventsAddr != "" {
		items = append(items, pterm.BulletListItem{
			Level: 0,
			Text:  "EVENTS  : ws://" + info.EventsAddr + "/events",
		})
	}

	if info.MDNS != "" {
		items = append(items, pterm.BulletListItem{Level: 0, Text: "MDNS    : " + info.MDNS})
	}

	if err := pterm.DefaultBulletList.WithWriter(w).WithItems(items).Render(); err != nil {
		return err
	}

	pterm.DefaultBasicText.WithWriter(w).Println("Press 'CTRL + c' to quit")

	return nil
}

// FormatEvent renders one log view line.
func FormatEvent(e events.Event) string {
	ts := e.Time.Format("15:04:05")

	switch e.Kind {
	case events.KindSucceeded:
		return fmt.Sprintf("%s Print sent → %s:%d", ts, e.Host, e.Port)
	case events.KindFailed:
		return fmt.Sprintf("%s Error: %s", ts, e.Detail)
	default:
		return fmt.Sprintf("%s %s", ts, e.Detail)
	}
}

// Print writes e as one log view line styled by its kind.
func Print(w io.Writer, e events.Event) {
	var printer pterm.PrefixPrinter
	switch e.Kind {
	case events.KindSucceeded:
		printer = pterm.Success
	case events.KindFailed:
		printer = pterm.Error
	default:
		printer = pterm.Info
	}

	printer.WithWriter(w).Println(FormatEvent(e))
}

// Run prints every event from ch until ch closes or ctx is done.
func Run(ctx context.Context, w io.Writer, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}

			Print(w, e)
		}
	}
}
