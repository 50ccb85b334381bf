package edits

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/keys"
)

// Sentinel is the line that ends a substitution value in a declaration file.
const Sentinel = "####"

// ParseDeclarations reads a declaration file:
//
//	R <dst> <src> <path>    replace element dst with src from the file at path
//	R <dst> Remove          remove element dst
//	S <key>                 substitute key with the value lines that follow
//	S <key> <dst>           as above, inside the replacement for dst
//
// Value lines end at a line holding only "####". Blank lines between
// declarations are ignored. The variant is named after the file.
func ParseDeclarations(r io.Reader, name string) (*Spec, error) {
	variant := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	b := NewBuilder(name, variant)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		inValue   bool
		valueKey  string
		valueDest string
		valueLine int
		value     []string
	)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if inValue {
			if line != Sentinel {
				value = append(value, line)
				continue
			}
			v := strings.TrimRight(strings.Join(value, "\n"), " \t\n")
			var err error
			if valueDest == "" {
				err = b.Substitute(valueKey, v, valueLine)
			} else {
				err = b.SubstituteFor(valueDest, valueKey, v, valueLine)
			}
			if err != nil {
				return nil, err
			}
			inValue, value = false, nil
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch {
		case strings.EqualFold(fields[0], "s") && (len(fields) == 2 || len(fields) == 3):
			inValue = true
			valueKey = fields[1]
			valueDest = ""
			if len(fields) == 3 {
				valueDest = fields[2]
			}
			valueLine = lineNo

		case strings.EqualFold(fields[0], "r") && len(fields) == 3 && keys.Equal(fields[2], "remove"):
			if err := b.Replace(fields[1], Remove{}, lineNo); err != nil {
				return nil, err
			}

		case strings.EqualFold(fields[0], "r") && len(fields) >= 4:
			// The path is everything after the source id and may hold spaces.
			rest := strings.TrimSpace(line)
			for range 3 {
				rest = strings.TrimLeft(rest, " \t")
				rest = rest[strings.IndexAny(rest, " \t"):]
			}
			action := Replace{SourceID: fields[2], SourcePath: strings.TrimSpace(rest)}
			if err := b.Replace(fields[1], action, lineNo); err != nil {
				return nil, err
			}

		default:
			return nil, b.fail(ErrMalformed, lineNo, "", fmt.Sprintf("unrecognized line %q", line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if inValue {
		return nil, b.fail(ErrMalformed, valueLine, keys.Sanitize(valueKey), "value not terminated by "+Sentinel)
	}
	return b.Build(), nil
}
