package storage

import (
	"errors"
	"strings"
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func trimDir(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/"
}

// listDirect keeps the keys that sit directly under prefix, mirroring the
// non-recursive listing of LocalStorage.
func listDirect(prefix string, keys []string) []string {
	dir := trimDir(prefix)
	var out []string
	for _, k := range keys {
		rest, ok := strings.CutPrefix(k, dir)
		if !ok || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		out = append(out, k)
	}
	return out
}
