package stamp

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"

	"github.com/pkg/errors"
)

// ErrDescriptorNotFound is returned by Run when the working directory has no
// package.json. Callers treat it as a skip, not a failure.
var ErrDescriptorNotFound = errors.New("descriptor not found")

// Descriptor is the subset of package.json the stamper reads.
type Descriptor struct {
	Name    string
	Version string
}

// LoadDescriptor reads and parses the package.json at path. A missing file
// yields ErrDescriptorNotFound; every other failure is fatal.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(ErrDescriptorNotFound, path)
		}
		return nil, errors.Wrapf(err, "reading descriptor %s", path)
	}

	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing descriptor %s", path)
	}
	return d, nil
}

// ParseDescriptor decodes package.json content. Only invalid JSON and a
// null top level are errors. Any other non-object value has no version
// field, so it yields DefaultVersion like a missing or falsy version does.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.WithStack(err)
	}
	if top == nil {
		return nil, errors.New("descriptor is null, cannot read its version")
	}
	if _, ok := top.(map[string]any); !ok {
		return &Descriptor{Version: DefaultVersion}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.WithStack(err)
	}

	version, err := versionOf(fields["version"])
	if err != nil {
		return nil, err
	}

	d := &Descriptor{Version: version}
	// name is informational only; a non-string name is ignored.
	_ = json.Unmarshal(fields["name"], &d.Name)
	return d, nil
}

// versionOf applies JavaScript truthiness to the raw version value: null,
// false, 0 and "" fall back to DefaultVersion. Truthy non-strings are kept as
// their compact JSON text.
func versionOf(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return DefaultVersion, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", errors.Wrap(err, "decoding version")
	}

	switch v := v.(type) {
	case nil:
		return DefaultVersion, nil
	case string:
		if v == "" {
			return DefaultVersion, nil
		}
		return v, nil
	case bool:
		if !v {
			return DefaultVersion, nil
		}
		return "true", nil
	case json.Number:
		f, err := v.Float64()
		if err == nil && f == 0 {
			return DefaultVersion, nil
		}
		return v.String(), nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", errors.Wrap(err, "compacting version")
		}
		return buf.String(), nil
	}
}
