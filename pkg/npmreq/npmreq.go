// Package npmreq parses and formats npm dependency identifiers of the form
// "name@version".
//
// Package names may themselves contain '@' and '/' (scoped packages such as
// "@types/node"), while versions never contain '@'. Identifiers are therefore
// always split on the last '@':
//
//	id, _ := npmreq.Parse("@types/node@20.1.0")
//	id.Name    // "@types/node"
//	id.Version // "20.1.0"
//
// The package also implements the name encoding used for generated
// shrinkwrap manifests. [Encode] turns a package name into a valid npm package
// name carrying the [GeneratedPrefix] marker, so manifests written by npmgen
// can be told apart from hand-authored ones and the dependency name can be
// recovered on install with [Decode].
package npmreq

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/npmgen/pkg/errors"
)

// GeneratedPrefix marks package names produced by [Encode].
const GeneratedPrefix = "npm-gen-"

// DefaultRegistryURL is the public npm registry.
const DefaultRegistryURL = "https://registry.npmjs.org"

// Identifier is a parsed "name@version" dependency identifier.
type Identifier struct {
	Name    string
	Version string
}

// String formats the identifier as "name@version".
func (id Identifier) String() string {
	return Format(id.Name, id.Version)
}

// Encoded returns the generated package name for the identifier.
func (id Identifier) Encoded() string {
	return Encode(id.Name)
}

// Parse splits id on its last '@'. It fails with MALFORMED_IDENTIFIER when
// id contains no '@' or the name part is empty.
func Parse(id string) (Identifier, error) {
	i := strings.LastIndexByte(id, '@')
	if i < 0 {
		return Identifier{}, errors.New(errors.ErrCodeMalformedIdentifier,
			"%q is not of the form name@version", id)
	}
	if i == 0 {
		return Identifier{}, errors.New(errors.ErrCodeMalformedIdentifier,
			"%q has an empty package name", id)
	}
	return Identifier{Name: id[:i], Version: id[i+1:]}, nil
}

// ParseName returns the package name of id.
func ParseName(id string) (string, error) {
	parsed, err := Parse(id)
	if err != nil {
		return "", err
	}
	return parsed.Name, nil
}

// ParseVersion returns the version of id, the suffix after its last '@'.
func ParseVersion(id string) (string, error) {
	i := strings.LastIndexByte(id, '@')
	if i < 0 {
		return "", errors.New(errors.ErrCodeMalformedIdentifier,
			"%q is not of the form name@version", id)
	}
	return id[i+1:], nil
}

// Format joins a name and version into an identifier.
func Format(name, version string) string {
	return name + "@" + version
}

var encodeReplacer = strings.NewReplacer("/", "-", "@", "at_")

// Encode returns the generated package name for name: path separators become
// '-', scope markers become "at_", and [GeneratedPrefix] is prepended.
//
// Encode is not injective: "@a/b-c" and "@a-b/c" both encode to
// "npm-gen-at_a-b-c".
func Encode(name string) string {
	return GeneratedPrefix + encodeReplacer.Replace(name)
}

// Decode strips [GeneratedPrefix] from an encoded name. Separator
// substitutions are NOT reversed: the result is the name that was installed
// from, which for scoped packages differs from the original name.
func Decode(encoded string) string {
	return strings.TrimPrefix(encoded, GeneratedPrefix)
}

// IsGenerated reports whether name carries [GeneratedPrefix].
func IsGenerated(name string) bool {
	return strings.HasPrefix(name, GeneratedPrefix)
}

// IsExactVersion reports whether version pins a single release ("1.2.3")
// rather than naming a range or tag ("^1.2.0", "latest").
func IsExactVersion(version string) bool {
	if version == "" {
		return false
	}
	_, err := semver.StrictNewVersion(strings.TrimPrefix(version, "v"))
	return err == nil
}

// TarballURL returns the registry URL of the package tarball for id.
// Tarball URLs look like
//
//	https://registry.npmjs.org/rollup/-/rollup-0.41.5.tgz
//	https://registry.npmjs.org/@types/npm/-/npm-2.0.28.tgz
//
// An empty registry selects [DefaultRegistryURL].
func TarballURL(registry, id string) (string, error) {
	parsed, err := Parse(id)
	if err != nil {
		return "", err
	}
	if registry == "" {
		registry = DefaultRegistryURL
	}
	if err := errors.ValidateURL(registry); err != nil {
		return "", err
	}
	base := parsed.Name
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(registry, "/") + "/" + parsed.Name + "/-/" + base + "-" + parsed.Version + ".tgz", nil
}
