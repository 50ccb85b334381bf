package engine

import (
	"log/slog"
	"regexp"

	"github.com/beevik/etree"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/edits"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/keys"
)

// tagPattern matches #key# and #key;directives#.
var tagPattern = regexp.MustCompile(`#([^#;]+);*([^#]*)#`)

// Substitute replaces tags in the leading text of el and every descendant,
// depth-first, pre-order. Tags whose key is not in subs are cleared.
// Directives may set attributes on the element holding the tag.
func Substitute(el *etree.Element, subs edits.SubstitutionMap, log *slog.Logger) {
	substitute(nil, el, subs, log)
}

func substitute(parent, el *etree.Element, subs edits.SubstitutionMap, log *slog.Logger) {
	if text := el.Text(); text != "" && tagPattern.MatchString(text) {
		el.SetText(tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
			m := tagPattern.FindStringSubmatch(tag)
			key, params := m[1], m[2]
			value, ok := subs[keys.Sanitize(key)]
			if !ok {
				log.Debug("tag cleared", "key", key)
				return ""
			}
			if params != "" {
				value = applyDirectives(parent, el, params, value, log)
			}
			log.Debug("tag substituted", "key", key, "value", value, "params", params)
			return value
		}))
	}
	for _, child := range el.ChildElements() {
		substitute(el, child, subs, log)
	}
}
