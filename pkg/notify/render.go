package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/lineupwatch/lineupwatch/pkg/matching"
	"github.com/lineupwatch/lineupwatch/pkg/polling"
	"github.com/lineupwatch/lineupwatch/pkg/show"
)

const (
	noShowsSubject = "Comedy Alert - No Shows This Week"
	alertSubject   = "%s Comedy Alert - Your Favorite Comedians!"
)

// Message is one rendered notification.
type Message struct {
	Venue   string // empty for the no-shows notice
	Subject string
	Text    string
	HTML    string
}

type slotView struct {
	Label      string
	Performers []string
}

type dateView struct {
	Display string
	Slots   []slotView
}

type venueView struct {
	Venue string
	Dates []dateView
}

const noShowsMarkdown = `## Comedy Alert

No shows found with your favorite comedians at any venue in the next %d days.

Keep checking back, new shows are added regularly.
`

// markdownEscaper backslash-escapes characters that would otherwise be read as
// markup in names and slot labels.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`, "!", `\!`,
)

func markdownToHTML(md string) string {
	extensions := parser.CommonExtensions
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return string(markdown.ToHTML([]byte(md), p, renderer))
}

// BuildMessages renders one message per venue with matches, ordered by venue
// name. An empty result yields a single no-shows notice covering days.
func BuildMessages(result polling.Result, days int) []Message {
	if len(result) == 0 {
		return []Message{{
			Subject: noShowsSubject,
			Text:    fmt.Sprintf("No shows found with your favorite comedians at any venue in the next %d days.", days),
			HTML:    markdownToHTML(fmt.Sprintf(noShowsMarkdown, days)),
		}}
	}

	var out []Message
	for _, venue := range sortedKeys(result) {
		view := buildView(venue, result[venue])
		out = append(out, Message{
			Venue:   venue,
			Subject: fmt.Sprintf(alertSubject, venue),
			Text:    renderText(view),
			HTML:    markdownToHTML(renderMarkdown(view)),
		})
	}
	return out
}

func buildView(venue string, byDate map[string]matching.Matches) venueView {
	view := venueView{Venue: venue}
	for _, date := range sortedKeys(byDate) {
		dv := dateView{Display: show.DisplayDate(date)}
		for _, slot := range sortedKeys(byDate[date]) {
			dv.Slots = append(dv.Slots, slotView{Label: slot, Performers: byDate[date][slot]})
		}
		view.Dates = append(view.Dates, dv)
	}
	return view
}

func renderMarkdown(v venueView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s Comedy Alert!\n\nYour favorite comedians are performing soon!\n", markdownEscaper.Replace(v.Venue))
	for _, d := range v.Dates {
		fmt.Fprintf(&sb, "\n## %s\n", d.Display)
		for _, s := range d.Slots {
			fmt.Fprintf(&sb, "\n**%s**\n\n", markdownEscaper.Replace(s.Label))
			for _, p := range s.Performers {
				fmt.Fprintf(&sb, "- %s\n", markdownEscaper.Replace(p))
			}
		}
	}
	sb.WriteString("\n---\n\nSent by lineupwatch\n")
	return sb.String()
}

func renderText(v venueView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Comedy Alert - Your favorite comedians are performing!\n", v.Venue)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	for _, d := range v.Dates {
		fmt.Fprintf(&sb, "\n%s\n", d.Display)
		sb.WriteString(strings.Repeat("-", 30) + "\n")
		for _, s := range d.Slots {
			fmt.Fprintf(&sb, "%s\n", s.Label)
			for _, p := range s.Performers {
				fmt.Fprintf(&sb, "  * %s\n", p)
			}
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
