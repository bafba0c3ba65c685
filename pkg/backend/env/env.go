// Package env captures the process environment into a shell-sourceable
// file, the way a submit.sh preamble picks up the site's modules and
// credentials before invoking the wrapper.
package env

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// validIdentifier matches a valid POSIX shell variable name. Keys failing
// this (bash function exports like "BASH_FUNC_foo%%", or any other
// non-identifier name os.Environ() happens to surface) are not assignable
// as plain shell variables and are skipped.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Write renders os.Environ() as `KEY="value"` lines, one per variable, and
// saves them to path. Keys that are not a valid shell identifier —
// including, but not limited to, the parenthesised names bash uses to
// export shell functions — are skipped.
func Write(path string) error {
	vars := os.Environ()
	pairs := make(map[string]string, len(vars))
	for _, kv := range vars {
		idx := strings.IndexByte(kv, '=')
		if idx <= 0 {
			continue
		}
		key, value := kv[:idx], kv[idx+1:]
		if !validIdentifier.MatchString(key) {
			continue
		}
		pairs[key] = value
	}

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%q\n", k, pairs[k])
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}
