// Package widget finds inline values in a document that interactive
// pickers can edit, and writes picked values back into the buffer.
package widget

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/dshills/scenepad/internal/engine/indent"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	// ErrStaleLink is returned when the line no longer holds the value a
	// link was scanned from.
	ErrStaleLink = errors.New("widget: link is stale")
	// ErrWrongKind is returned when a setter is used on the other kind of
	// link.
	ErrWrongKind = errors.New("widget: wrong link kind")
)

// Kind identifies the picker a link opens.
type Kind int

const (
	// KindColor is a color value.
	KindColor Kind = iota
	// KindVec2 is a two-component vector.
	KindVec2
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindVec2:
		return "vec2"
	default:
		return "unknown"
	}
}

// Link is an editable value on one line. Start and End are byte offsets
// of the value text within the line.
type Link struct {
	Kind  Kind
	Line  int
	Start int
	End   int
	Text  string

	// Color links.
	Color    colorful.Color
	Alpha    float64
	HasAlpha bool
	Hex      bool

	// Vec2 links.
	X, Y float64
}

var (
	number     = `-?(?:\d+\.?\d*|\.\d+)`
	colorKey   = regexp.MustCompile(`^[ \t]*color[ \t]*:[ \t]*`)
	hexValue   = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`)
	arrayValue = regexp.MustCompile(`\[[ \t]*` + number + `(?:[ \t]*,[ \t]*` + number + `)*[ \t]*\]`)
)

// Scan returns the links found in lines, in document order.
func Scan(lines []string) []Link {
	var links []Link
	for i, l := range lines {
		if indent.IsBlank(l) || indent.IsCommented(l) {
			continue
		}
		if link, ok := scanColor(i, l); ok {
			links = append(links, link)
			continue
		}
		for _, loc := range arrayValue.FindAllStringIndex(l, -1) {
			nums, ok := parseArray(l[loc[0]:loc[1]])
			if !ok || len(nums) != 2 {
				continue
			}
			links = append(links, Link{
				Kind:  KindVec2,
				Line:  i,
				Start: loc[0],
				End:   loc[1],
				Text:  l[loc[0]:loc[1]],
				X:     nums[0],
				Y:     nums[1],
			})
		}
	}
	return links
}

func scanColor(n int, line string) (Link, bool) {
	m := colorKey.FindStringIndex(line)
	if m == nil {
		return Link{}, false
	}
	start := m[1]
	rest := line[start:]

	if hex := hexValue.FindString(rest); hex != "" {
		c, err := colorful.Hex(hex)
		if err != nil {
			return Link{}, false
		}
		return Link{
			Kind:  KindColor,
			Line:  n,
			Start: start,
			End:   start + len(hex),
			Text:  hex,
			Color: c,
			Alpha: 1,
			Hex:   true,
		}, true
	}

	loc := arrayValue.FindStringIndex(rest)
	if loc == nil || loc[0] != 0 {
		return Link{}, false
	}
	nums, ok := parseArray(rest[:loc[1]])
	if !ok || (len(nums) != 3 && len(nums) != 4) {
		return Link{}, false
	}
	link := Link{
		Kind:  KindColor,
		Line:  n,
		Start: start,
		End:   start + loc[1],
		Text:  rest[:loc[1]],
		Color: colorful.Color{R: nums[0], G: nums[1], B: nums[2]},
		Alpha: 1,
	}
	if len(nums) == 4 {
		link.Alpha = nums[3]
		link.HasAlpha = true
	}
	return link, true
}

func parseArray(s string) ([]float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FormatColor renders c in the notation link was written in.
func FormatColor(link Link, c colorful.Color) string {
	c = c.Clamped()
	if link.Hex {
		return c.Hex()
	}
	vals := []string{formatNumber(c.R), formatNumber(c.G), formatNumber(c.B)}
	if link.HasAlpha {
		vals = append(vals, formatNumber(link.Alpha))
	}
	return "[" + strings.Join(vals, ", ") + "]"
}

// FormatVec2 renders a vector value.
func FormatVec2(x, y float64) string {
	return fmt.Sprintf("[%s, %s]", formatNumber(x), formatNumber(y))
}

// SetColor replaces the value of a color link and returns the updated
// link.
func SetColor(buf *buffer.Buffer, link Link, c colorful.Color) (Link, error) {
	if link.Kind != KindColor {
		return link, ErrWrongKind
	}
	text := FormatColor(link, c)
	if err := replace(buf, &link, text); err != nil {
		return link, err
	}
	link.Color = c.Clamped()
	return link, nil
}

// SetVec2 replaces the value of a vec2 link and returns the updated link.
func SetVec2(buf *buffer.Buffer, link Link, x, y float64) (Link, error) {
	if link.Kind != KindVec2 {
		return link, ErrWrongKind
	}
	if err := replace(buf, &link, FormatVec2(x, y)); err != nil {
		return link, err
	}
	link.X, link.Y = x, y
	return link, nil
}

func replace(buf *buffer.Buffer, link *Link, text string) error {
	if link.Line < 0 || link.Line >= buf.LineCount() {
		return ErrStaleLink
	}
	line := buf.LineText(link.Line)
	if link.End > len(line) || line[link.Start:link.End] != link.Text {
		return ErrStaleLink
	}
	updated := line[:link.Start] + text + line[link.End:]
	if _, err := buf.ReplaceLine(link.Line, updated); err != nil {
		return fmt.Errorf("replace line %d: %w", link.Line, err)
	}
	link.End = link.Start + len(text)
	link.Text = text
	return nil
}

// Index keeps the links of the latest rendered snapshot.
//
// Thread-safety: All methods are safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	revision string
	links    []Link
}

// Refresh rescans snap. It has the shape the pipeline's after-reload hook
// expects.
func (x *Index) Refresh(snap buffer.Snapshot) {
	links := Scan(strings.Split(snap.Text(), "\n"))
	x.mu.Lock()
	x.revision = snap.Revision()
	x.links = links
	x.mu.Unlock()
}

// Revision returns the revision of the last refresh.
func (x *Index) Revision() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.revision
}

// Links returns every link.
func (x *Index) Links() []Link {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]Link(nil), x.links...)
}

// At returns the link on line covering byte offset ch.
func (x *Index) At(line, ch int) (Link, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, l := range x.links {
		if l.Line == line && ch >= l.Start && ch <= l.End {
			return l, true
		}
	}
	return Link{}, false
}
