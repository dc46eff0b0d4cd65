package comptypes

import (
	"encoding/json"
	"fmt"
	"slices"
)

// DefaultNamespace prefixes extension ids written by this engine.
const DefaultNamespace = "compstaff"

// Extension names with registered defaults.
const (
	ExtensionGroups = "groups"
	ExtensionStaff  = "staff"
)

// Extension is a namespaced opaque configuration block attached to a node.
type Extension struct {
	ID      string          `json:"id"`
	SpecURL string          `json:"specUrl,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// GroupsConfig is stored on round activities to persist the desired group count.
type GroupsConfig struct {
	Groups int `json:"groups"`
}

// StaffConfig records how many staff of each kind a round wants per group.
type StaffConfig struct {
	Judges     int `json:"judges"`
	Scramblers int `json:"scramblers"`
	Runners    int `json:"runners"`
}

var extensionDefaults = map[string]any{
	ExtensionGroups: GroupsConfig{Groups: 1},
	ExtensionStaff:  StaffConfig{},
}

// ExtensionID returns "<namespace>.<name>".
func ExtensionID(name, namespace string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace + "." + name
}

// GetExtensionData decodes the named extension into out. When the block is
// absent, out receives the registered default for name, if any, and found is false.
func GetExtensionData(exts []Extension, name, namespace string, out any) (bool, error) {
	id := ExtensionID(name, namespace)
	for _, ext := range exts {
		if ext.ID != id {
			continue
		}
		if err := json.Unmarshal(ext.Data, out); err != nil {
			return true, fmt.Errorf("decode extension %s: %w", id, err)
		}
		return true, nil
	}

	def, ok := extensionDefaults[name]
	if !ok {
		return false, nil
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return false, fmt.Errorf("encode default for %s: %w", id, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode default for %s: %w", id, err)
	}
	return false, nil
}

// SetExtensionData returns a copy of exts with the named block replaced or appended.
func SetExtensionData(exts []Extension, name, namespace string, data any) ([]Extension, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode extension %s: %w", ExtensionID(name, namespace), err)
	}
	id := ExtensionID(name, namespace)
	out := cloneExtensions(exts)
	for i := range out {
		if out[i].ID == id {
			out[i].Data = raw
			return out, nil
		}
	}
	return append(out, Extension{ID: id, Data: raw}), nil
}

// RemoveExtension returns a copy of exts without the named block.
func RemoveExtension(exts []Extension, name, namespace string) []Extension {
	id := ExtensionID(name, namespace)
	return slices.DeleteFunc(cloneExtensions(exts), func(e Extension) bool {
		return e.ID == id
	})
}

// GroupsConfigFor returns the stored groups config of an activity, or the default.
func GroupsConfigFor(a Activity) GroupsConfig {
	var cfg GroupsConfig
	if _, err := GetExtensionData(a.Extensions, ExtensionGroups, DefaultNamespace, &cfg); err != nil {
		return extensionDefaults[ExtensionGroups].(GroupsConfig)
	}
	return cfg
}

func cloneExtensions(in []Extension) []Extension {
	if in == nil {
		return nil
	}
	out := make([]Extension, len(in))
	for i, e := range in {
		out[i] = Extension{ID: e.ID, SpecURL: e.SpecURL, Data: slices.Clone(e.Data)}
	}
	return out
}
