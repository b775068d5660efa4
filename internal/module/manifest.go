package module

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// manifestFunc is one function's declared signature in a <name>.yaml
// file, checked against what JaryLoad actually exports.
type manifestFunc struct {
	Name       string   `yaml:"name"`
	ArgKinds   []string `yaml:"args"`
	ReturnKind string   `yaml:"returns"`
}

// manifest is the optional <name>.yaml sidecar format: a list of
// functions a module promises to export, by name and kind signature.
type manifest struct {
	Functions []manifestFunc `yaml:"functions"`
}

// loadManifest reads path if it exists, returning nil (no error) when
// it doesn't — the manifest is opt-in per §6, not required for every
// module.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read %q", path)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse %q", path)
	}
	return &m, nil
}

// check verifies fn matches a declared signature in m, by name, arg
// kinds, and return kind. A function not named in the manifest at all
// is rejected, since an omission would otherwise silently let an
// unreviewed export through.
func (m *manifest) check(fn FuncExport) error {
	for _, want := range m.Functions {
		if want.Name != fn.Name {
			continue
		}
		if want.ReturnKind != fn.ReturnKind {
			return errors.Errorf("function %q: manifest declares return kind %q, got %q",
				fn.Name, want.ReturnKind, fn.ReturnKind)
		}
		if len(want.ArgKinds) != len(fn.ArgKinds) {
			return errors.Errorf("function %q: manifest declares %d args, got %d",
				fn.Name, len(want.ArgKinds), len(fn.ArgKinds))
		}
		for i := range want.ArgKinds {
			if want.ArgKinds[i] != fn.ArgKinds[i] {
				return errors.Errorf("function %q: manifest declares arg %d as %q, got %q",
					fn.Name, i, want.ArgKinds[i], fn.ArgKinds[i])
			}
		}
		return nil
	}
	return errors.Errorf("function %q: not declared in module manifest", fn.Name)
}
