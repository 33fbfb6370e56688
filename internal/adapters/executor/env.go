package executor

import (
	"maps"
	"slices"
	"strings"
)

// MergeEnv applies overrides on top of base, a list of KEY=VALUE pairs as returned by
// os.Environ. Overridden keys keep their position; new keys are appended sorted.
func MergeEnv(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	applied := make(map[string]bool, len(overrides))

	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if value, ok := overrides[key]; ok {
			if !applied[key] {
				env = append(env, key+"="+value)
				applied[key] = true
			}
			continue
		}
		env = append(env, kv)
	}

	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		if !applied[key] {
			env = append(env, key+"="+overrides[key])
		}
	}

	return env
}
