// Package shrinkwrap reads, validates and writes npm-shrinkwrap.json
// manifests.
//
// A manifest is opaque apart from its top-level name and version: the
// generator stores name in encoded form (see [npmreq.Encode]) and the
// installer decodes it back. The remaining content is passed through
// byte-for-byte, except for peer-dependency stripping.
package shrinkwrap

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/matzehuels/npmgen/pkg/errors"
	"github.com/matzehuels/npmgen/pkg/fsutil"
	"github.com/matzehuels/npmgen/pkg/npmreq"
	"github.com/matzehuels/npmgen/pkg/observability"
	"github.com/matzehuels/npmgen/pkg/pkgjson"
)

// FileName is the manifest filename npm reads during install.
const FileName = "npm-shrinkwrap.json"

//go:embed schema/shrinkwrap.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

// Manifest is a parsed shrinkwrap. Raw holds the exact bytes it was parsed
// from.
type Manifest struct {
	Name    string
	Version string
	Raw     []byte
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("shrinkwrap.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("shrinkwrap.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Parse validates data against the manifest schema and extracts the
// top-level name and version. Failures carry ErrCodeManifestUnreadable.
func Parse(data []byte) (*Manifest, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load shrinkwrap schema")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestUnreadable, err, "shrinkwrap is not valid JSON")
	}
	if err := schema.Validate(inst); err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestUnreadable, err, "shrinkwrap does not match schema")
	}

	var head struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestUnreadable, err, "decode shrinkwrap")
	}
	return &Manifest{Name: head.Name, Version: head.Version, Raw: data}, nil
}

// Read parses the manifest stored at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "no shrinkwrap at %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeManifestUnreadable, err, "read %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Write stores m.Raw at path, creating the parent directory and replacing
// any existing file atomically.
func Write(path string, m *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fsutil.WriteFile(path, m.Raw, 0644)
}

// IsValid reports whether the manifest at path was generated for name at
// exactly version. A missing or unreadable manifest is not an error, only
// a reason to regenerate; it is logged and reported as invalid.
func IsValid(path, name, version string, logger *log.Logger) bool {
	if logger == nil {
		logger = log.Default()
	}
	m, err := Read(path)
	if err != nil {
		reason := errors.UserMessage(err)
		if errors.Is(err, errors.ErrCodeFileNotFound) {
			logger.Debug("no cached shrinkwrap", "path", path)
		} else {
			logger.Warn("ignoring unreadable shrinkwrap", "path", path, "err", reason)
		}
		observability.Manifest().OnManifestInvalid(context.Background(), path, reason)
		return false
	}

	want := npmreq.Encode(name)
	switch {
	case m.Name != want:
		logger.Debug("cached shrinkwrap is for another package", "path", path, "have", m.Name, "want", want)
		observability.Manifest().OnManifestInvalid(context.Background(), path, "name mismatch")
		return false
	case m.Version != version:
		logger.Debug("cached shrinkwrap is for another version", "path", path, "have", m.Version, "want", version)
		observability.Manifest().OnManifestInvalid(context.Background(), path, "version mismatch")
		return false
	}
	return true
}

// StripPeerDependencies returns m with every peerDependencies declaration
// removed, recursively. m is returned as is when it declares none.
func StripPeerDependencies(m *Manifest) (*Manifest, error) {
	out, changed, err := pkgjson.StripPeerDependencies(m.Raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestUnreadable, err, "strip peer dependencies")
	}
	if !changed {
		return m, nil
	}
	return &Manifest{Name: m.Name, Version: m.Version, Raw: out}, nil
}

// Digest is the SHA-256 of m.Raw as 64 hex characters.
func (m *Manifest) Digest() string {
	sum := sha256.Sum256(m.Raw)
	return hex.EncodeToString(sum[:])
}

// PackageName recovers the installable package name from an encoded
// manifest name. Manifests not produced by npmgen keep their name.
func (m *Manifest) PackageName() string {
	if !npmreq.IsGenerated(m.Name) {
		return m.Name
	}
	return npmreq.Decode(m.Name)
}

// String is "<name>@<version>" with the name as stored.
func (m *Manifest) String() string {
	return npmreq.Format(m.Name, m.Version)
}
