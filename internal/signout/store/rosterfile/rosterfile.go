// Package rosterfile reads the staff roster from a hand-edited TOML or YAML
// file.  The format is chosen by extension:
//
//	# staff.toml
//	[[staff]]
//	name = "Sam Rivera"
//	code = 1234
//
//	# staff.yaml
//	staff:
//	  - name: Sam Rivera
//	    code: "0042"
//	    active: no
//
// Codes may be written as numbers or strings.  A record without an active
// key is active.
package rosterfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

type entry struct {
	Name   string `toml:"name" yaml:"name"`
	Code   any    `toml:"code" yaml:"code"`
	Active any    `toml:"active" yaml:"active"`
}

type document struct {
	Staff []entry `toml:"staff" yaml:"staff"`
}

// File is a roster file.  It is re-read on every ReadAll; the credential
// Directory in front of it decides how often that happens.
type File struct {
	path string
}

var _ store.RosterStore = (*File)(nil)

func New(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

func (f *File) ReadAll(ctx context.Context) ([]credential.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	return Parse(filepath.Ext(f.path), data)
}

// Parse decodes data according to ext (".toml", ".yaml" or ".yml").
func Parse(ext string, data []byte) ([]credential.Record, error) {
	var doc document
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("parse toml roster: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml roster: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster format %q", ext)
	}

	out := make([]credential.Record, 0, len(doc.Staff))
	for i, e := range doc.Staff {
		code, err := scalar(e.Code)
		if err != nil {
			return nil, fmt.Errorf("staff[%d] code: %w", i, err)
		}
		rec := credential.Record{Name: strings.TrimSpace(e.Name), Code: code, Active: true}
		if e.Active != nil {
			v, err := scalar(e.Active)
			if err != nil {
				return nil, fmt.Errorf("staff[%d] active: %w", i, err)
			}
			rec.Active = credential.ParseActive(v)
		}
		out = append(out, rec)
	}
	return out, nil
}

// scalar renders a decoded TOML/YAML scalar as the text a spreadsheet
// cell would hold.
func scalar(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}
