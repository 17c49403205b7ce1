package kcconfig

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

// Entry is one knowledge component in an overrides file.
type Entry struct {
	ID   uuid.UUID
	Key  string
	Name string
	Bkt  *types.ParameterOverrides
}

type rawFile struct {
	KnowledgeComponents []rawEntry `yaml:"knowledge_components"`
}

type rawEntry struct {
	ID   string                    `yaml:"id"`
	Key  string                    `yaml:"key"`
	Name string                    `yaml:"name"`
	Bkt  *types.ParameterOverrides `yaml:"bkt"`
}

// File is a validated set of per-KC BKT overrides.
type File struct {
	Entries []Entry
	byID    map[uuid.UUID]*types.ParameterOverrides
}

func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open kc params file: %w", err)
	}
	defer f.Close()
	out, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Parse decodes and validates an overrides document. Any probability outside
// [0,1] rejects the whole document with a *types.InvalidParameterError.
func Parse(r io.Reader) (*File, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc rawFile
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode kc params: %w", err)
		}
	}

	out := &File{byID: map[uuid.UUID]*types.ParameterOverrides{}}
	for i, e := range doc.KnowledgeComponents {
		id, err := uuid.Parse(strings.TrimSpace(e.ID))
		if err != nil || id == uuid.Nil {
			return nil, fmt.Errorf("knowledge_components[%d]: %w", i, &types.InvalidInputError{Field: "id", Reason: "must be a uuid"})
		}
		if _, dup := out.byID[id]; dup {
			return nil, fmt.Errorf("knowledge_components[%d]: duplicate id %s", i, id)
		}
		if err := e.Bkt.Validate(); err != nil {
			return nil, fmt.Errorf("knowledge_components[%d] (%s): %w", i, id, err)
		}
		out.byID[id] = e.Bkt
		out.Entries = append(out.Entries, Entry{
			ID:   id,
			Key:  strings.TrimSpace(e.Key),
			Name: strings.TrimSpace(e.Name),
			Bkt:  e.Bkt,
		})
	}
	return out, nil
}

// GetParameterOverrides serves the file as a KC config source.
func (f *File) GetParameterOverrides(ctx context.Context, kcID uuid.UUID) (*types.ParameterOverrides, error) {
	if f == nil {
		return nil, nil
	}
	return f.byID[kcID], nil
}
