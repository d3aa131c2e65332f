package rules

import (
	"errors"
	"strings"

	"github.com/entrhq/envwarn/pkg/config"
	"github.com/entrhq/envwarn/pkg/environment"
	"github.com/tidwall/gjson"
)

// ErrInvalidDump is returned for input that is not a JSON object.
var ErrInvalidDump = errors.New("not a browser storage dump")

// Dump holds what was recovered from an exported browser storage object.
type Dump struct {
	Rules []config.Rule
	// Patterns is nil when the dump has no envPatterns key.
	Patterns environment.PatternSet
}

// ParseChromeDump reads the rules and envPatterns keys of a browser
// storage export. Both the flat form and one nested under "sync" or
// "local" are accepted. Entries of the wrong shape are skipped.
func ParseChromeDump(data []byte) (Dump, error) {
	if !gjson.ValidBytes(data) {
		return Dump{}, ErrInvalidDump
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Dump{}, ErrInvalidDump
	}

	lookup := func(key string) gjson.Result {
		for _, path := range []string{key, "sync." + key, "local." + key} {
			if v := root.Get(path); v.Exists() {
				return v
			}
		}
		return gjson.Result{}
	}

	var dump Dump

	for _, item := range lookup("rules").Array() {
		if !item.IsObject() {
			continue
		}
		domain := strings.TrimSpace(item.Get("domain").String())
		if domain == "" {
			continue
		}
		dump.Rules = append(dump.Rules, config.Rule{
			Domain: domain,
			Text:   item.Get("text").String(),
			Colour: item.Get("colour").String(),
		})
	}

	if patterns := lookup("envPatterns"); patterns.IsObject() {
		dump.Patterns = make(environment.PatternSet, len(environment.Priority))
		for _, env := range environment.Priority {
			list := []string{}
			for _, p := range patterns.Get(string(env)).Array() {
				if p.Type == gjson.String {
					list = append(list, p.String())
				}
			}
			dump.Patterns[env] = list
		}
	}

	return dump, nil
}
