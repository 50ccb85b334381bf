package engine

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Provisional coordinates. Finalize copies them to x and y once every
// sibling has been measured. Re-centering sets ProvisionalY; no directive
// sets ProvisionalX, but templates may carry either attribute to position
// an element only in finished output.
const (
	ProvisionalX = "kbb_x"
	ProvisionalY = "kbb_y"
)

// applyDirectives applies a tag's comma-separated directives, in order, to
// el and returns the value to emit.
//
//	r<x>  set x, right justify
//	c<x>  set x, center
//	l<n>  emit line n (1-based) of a multi-line value
func applyDirectives(parent, el *etree.Element, params, value string, log *slog.Logger) string {
	for _, field := range strings.Split(strings.ToLower(params), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			log.Warn("skipping empty directive", "params", params)
			continue
		}
		code, arg := field[0], field[1:]
		switch code {
		case 'r', 'c':
			if arg == "" {
				log.Warn("skipping directive without position", "directive", field, "params", params)
				continue
			}
			anchor := "end"
			if code == 'c' {
				anchor = "middle"
			}
			el.CreateAttr("x", arg)
			el.CreateAttr("text-anchor", anchor)
		case 'l':
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				log.Warn("skipping directive with bad line number", "directive", field, "params", params)
				continue
			}
			lines := strings.Split(value, "\n")
			if n > len(lines) {
				value = ""
			} else {
				value = strings.TrimRight(lines[n-1], " \t\r")
			}
			recenter(parent, el, n-1, len(lines), log)
		default:
			log.Warn("skipping unknown directive", "code", string(code), "params", params)
		}
	}
	return value
}

// recenter records a provisional y on el when its parent holds more tspan
// line slots than the value has lines, so short content sits in the middle
// of the reserved block instead of at its top.
func recenter(parent, el *etree.Element, index, lines int, log *slog.Logger) {
	if parent == nil {
		return
	}
	var ys []float64
	for _, child := range parent.ChildElements() {
		if !strings.EqualFold(child.Tag, "tspan") {
			continue
		}
		y, err := strconv.ParseFloat(child.SelectAttrValue("y", ""), 64)
		if err != nil {
			log.Warn("line slot without numeric y, not recentering", "id", child.SelectAttrValue("id", ""))
			return
		}
		ys = append(ys, y)
	}
	slots := len(ys)
	if slots <= lines || slots < 2 || index >= slots {
		return
	}
	slices.Sort(ys)
	y := ys[index] + float64(slots-lines)/2*(ys[1]-ys[0])
	el.CreateAttr(ProvisionalY, strconv.FormatFloat(y, 'f', -1, 64))
}
