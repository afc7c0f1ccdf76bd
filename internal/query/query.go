// Package query reads the navigation directives a session can be started
// with: a fold level, a line range to select and the scene to open.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dshills/scenepad/internal/engine/fold"
	"github.com/dshills/scenepad/internal/navigation"
)

// Parameter names.
const (
	ParamFoldLevel = "foldLevel"
	ParamLines     = "lines"
	ParamScene     = "scene"
)

// Params are the parsed directives.
type Params struct {
	FoldLevel    int
	HasFoldLevel bool
	Lines        string
	Scene        string
}

// Parse reads directives from a query string. A leading "?" and a full URL
// are both accepted. An invalid fold level is ignored.
func Parse(raw string) Params {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	values, err := url.ParseQuery(raw)
	if err != nil && len(values) == 0 {
		return Params{}
	}

	var p Params
	if s := values.Get(ParamFoldLevel); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			p.FoldLevel = n
			p.HasFoldLevel = true
		}
	}
	p.Lines = strings.TrimSpace(values.Get(ParamLines))
	p.Scene = values.Get(ParamScene)
	return p
}

// Encode renders p as a query string.
func (p Params) Encode() string {
	v := url.Values{}
	if p.HasFoldLevel {
		v.Set(ParamFoldLevel, strconv.Itoa(p.FoldLevel))
	}
	if p.Lines != "" {
		v.Set(ParamLines, p.Lines)
	}
	if p.Scene != "" {
		v.Set(ParamScene, p.Scene)
	}
	return v.Encode()
}

// Apply runs the directives once. With a fold level and no lines the
// document is folded to that level; with lines the range is selected,
// folding everything else when a level is also given. It reports whether
// a selection was made.
func Apply(ctrl *navigation.Controller, folds *fold.Engine, p Params) bool {
	if p.HasFoldLevel {
		ctrl.SetFoldLevel(p.FoldLevel)
		if p.Lines == "" {
			folds.FoldByLevel(p.FoldLevel)
		}
	}
	if p.Lines == "" {
		return false
	}
	_, ok := ctrl.SelectLines(p.Lines)
	return ok
}
