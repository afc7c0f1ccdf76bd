// Package rewrite applies the access-token compatibility rewrite to style
// documents before they reach the render target, and removes it again when
// a document is loaded.
//
// A line qualifies when it has the shape "<indent>url: <value>" and value
// references the configured tile host and ends in one of the recognized
// suffixes. Qualifying lines get "?<param>=<token>" appended.
package rewrite

import (
	"regexp"
	"strings"
)

// Default rule values.
const (
	DefaultHost  = "mapzen.com"
	DefaultParam = "api_key"
	DefaultToken = "vector-tiles-x4i7gmA"
)

// DefaultSuffixes are the tile formats the rewrite recognizes.
var DefaultSuffixes = []string{"topojson", "geojson", "mvt"}

// Rule describes one token injection.
type Rule struct {
	Host     string
	Suffixes []string
	Param    string
	Token    string
}

// DefaultRule returns the rule for the public vector tile service.
func DefaultRule() Rule {
	return Rule{
		Host:     DefaultHost,
		Suffixes: append([]string(nil), DefaultSuffixes...),
		Param:    DefaultParam,
		Token:    DefaultToken,
	}
}

// Rewriter is a compiled Rule.
type Rewriter struct {
	rule   Rule
	inject *regexp.Regexp
	strip  *regexp.Regexp
}

// New compiles rule. Empty fields fall back to the defaults.
func New(rule Rule) *Rewriter {
	def := DefaultRule()
	if rule.Host == "" {
		rule.Host = def.Host
	}
	if len(rule.Suffixes) == 0 {
		rule.Suffixes = def.Suffixes
	}
	if rule.Param == "" {
		rule.Param = def.Param
	}
	if rule.Token == "" {
		rule.Token = def.Token
	}

	suffixes := make([]string, len(rule.Suffixes))
	for i, s := range rule.Suffixes {
		suffixes[i] = regexp.QuoteMeta(s)
	}
	const valueChars = `[A-Za-z0-9/{}.:]`
	inject := `(?m)^([ \t]+url:[ \t]+` + valueChars + `+` + regexp.QuoteMeta(rule.Host) +
		valueChars + `+(?:` + strings.Join(suffixes, "|") + `))$`
	strip := `(?m)\?` + regexp.QuoteMeta(rule.Param) + `=[\w-]*(\r?)$`

	return &Rewriter{
		rule:   rule,
		inject: regexp.MustCompile(inject),
		strip:  regexp.MustCompile(strip),
	}
}

// Rule returns the compiled rule.
func (r *Rewriter) Rule() Rule {
	return r.rule
}

// Inject appends the access token to every qualifying url line.
// Lines that already carry a query string do not qualify.
func (r *Rewriter) Inject(content string) string {
	repl := "${1}?" + strings.ReplaceAll(r.rule.Param+"="+r.rule.Token, "$", "$$")
	return r.inject.ReplaceAllString(content, repl)
}

// Strip removes a trailing access-token parameter from every line. A
// carriage return ending the line is kept.
func (r *Rewriter) Strip(content string) string {
	return r.strip.ReplaceAllString(content, "${1}")
}

// Matches reports whether line qualifies for injection.
func (r *Rewriter) Matches(line string) bool {
	return r.inject.MatchString(line)
}
