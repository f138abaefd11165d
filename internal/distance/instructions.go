package distance

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips HTML markup from a turn-by-turn instruction. Block
// elements such as Google's trailing <div> notes are separated by a space.
func PlainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return collapseSpace(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapseSpace(html)
	}

	var b strings.Builder
	var walk func(sel *goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			switch name := goquery.NodeName(c); {
			case name == "#text":
				b.WriteString(c.Text())
			case blockElements[name]:
				b.WriteByte(' ')
				walk(c)
			default:
				walk(c)
			}
		})
	}
	walk(doc.Selection)
	return collapseSpace(b.String())
}

var blockElements = map[string]bool{"div": true, "p": true, "br": true, "li": true}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// osrmInstruction renders an OSRM step maneuver as a sentence
func osrmInstruction(maneuverType, modifier, road string) string {
	onto := ""
	if road != "" {
		onto = " onto " + road
	}

	switch maneuverType {
	case "depart":
		if road != "" {
			return "Head out on " + road
		}
		return "Depart"
	case "arrive":
		return "Arrive at destination"
	case "roundabout", "rotary":
		return "Enter the roundabout" + exitOnto(road)
	case "merge":
		return "Merge" + onto
	case "on ramp":
		return "Take the ramp" + onto
	case "off ramp":
		return "Take the exit" + onto
	case "fork":
		return fmt.Sprintf("Keep %s at the fork%s", orDefault(modifier, "straight"), onto)
	case "end of road":
		return fmt.Sprintf("Turn %s at the end of the road%s", orDefault(modifier, "straight"), onto)
	case "continue", "new name":
		return "Continue" + onto
	}

	if modifier == "" {
		return "Continue" + onto
	}
	if modifier == "straight" {
		return "Go straight" + onto
	}
	return fmt.Sprintf("Turn %s%s", modifier, onto)
}

func exitOnto(road string) string {
	if road == "" {
		return ""
	}
	return " and exit onto " + road
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// formatDuration renders seconds the way the directions APIs do, e.g. "1 hour 5 mins"
func formatDuration(secs float64) string {
	mins := int(secs/60 + 0.5)
	if mins < 1 {
		return "1 min"
	}
	if mins < 60 {
		return plural(mins, "min")
	}
	h, m := mins/60, mins%60
	if m == 0 {
		return plural(h, "hour")
	}
	return plural(h, "hour") + " " + plural(m, "min")
}

// formatDistance renders meters as "350 m" or "1.2 km"
func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(meters+0.5))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
