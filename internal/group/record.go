package group

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Capacity is the number of texture slots in a group.
const Capacity = 10

// Sentinel errors.
var (
	// ErrGroupFull is returned when more than Capacity references are given.
	ErrGroupFull = errors.New("group: more than 10 textures")

	// ErrInvalidRecord is returned when a serialized record cannot be decoded.
	ErrInvalidRecord = errors.New("group: invalid record")
)

// Record is the serialized form of a texture group.
//
// Slots hold texture file names in order; an empty string is an empty slot.
type Record struct {
	Name     string
	Textures [Capacity]string
}

// NewRecord returns a record named name whose leading slots hold refs in order.
func NewRecord(name string, refs ...string) (Record, error) {
	if len(refs) > Capacity {
		return Record{}, fmt.Errorf("%w: %s has %d", ErrGroupFull, name, len(refs))
	}
	rec := Record{Name: name}
	copy(rec.Textures[:], refs)
	return rec, nil
}

// Refs returns the non-empty slots in order.
func (r *Record) Refs() []string {
	refs := make([]string, 0, Capacity)
	for _, ref := range r.Textures {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Len returns the number of non-empty slots.
func (r *Record) Len() int {
	n := 0
	for _, ref := range r.Textures {
		if ref != "" {
			n++
		}
	}
	return n
}

// recordDoc mirrors the YAML layout of a group asset.
type recordDoc struct {
	Version  int      `yaml:"version"`
	Name     string   `yaml:"name"`
	Textures []string `yaml:"textures"`
}

const recordVersion = 1

// MarshalYAML implements yaml.Marshaler. All slots are written so the file
// shows the fixed capacity.
func (r Record) MarshalYAML() (any, error) {
	return recordDoc{
		Version:  recordVersion,
		Name:     r.Name,
		Textures: r.Textures[:],
	}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	var doc recordDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	if doc.Version != recordVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, doc.Version)
	}
	if len(doc.Textures) > Capacity {
		return fmt.Errorf("%w: %s has %d", ErrGroupFull, doc.Name, len(doc.Textures))
	}
	r.Name = doc.Name
	r.Textures = [Capacity]string{}
	copy(r.Textures[:], doc.Textures)
	return nil
}

// Encode returns the YAML encoding of r.
func (r Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRecord parses a YAML group asset.
func DecodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		if errors.Is(err, ErrInvalidRecord) || errors.Is(err, ErrGroupFull) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if rec.Name == "" {
		return Record{}, fmt.Errorf("%w: missing name", ErrInvalidRecord)
	}
	return rec, nil
}
