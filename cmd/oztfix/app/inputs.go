package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/agentstation/oztfix/pkg/errors"
)

// ExpandInputs turns command line arguments into a list of files. Plain
// paths are kept as given; glob patterns (with ** for any depth) are
// expanded to the matching files in lexical order. Each file appears once,
// at the position of its first occurrence.
func ExpandInputs(fs afero.Fs, args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		if !isPattern(arg) {
			add(arg)
			continue
		}

		matches, err := glob(fs, arg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, &errors.ValidationError{
				Field:   "files",
				Value:   arg,
				Message: "pattern matches no files",
			}
		}
		for _, m := range matches {
			add(m)
		}
	}

	return files, nil
}

func isPattern(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

// glob walks the static prefix of pattern and returns the files that match it.
func glob(fs afero.Fs, pattern string) ([]string, error) {
	pattern = filepath.Clean(pattern)
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	base = filepath.FromSlash(base)

	var matches []string
	err := afero.Walk(fs, base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ok, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, &errors.ValidationError{
			Field:   "files",
			Value:   pattern,
			Message: err.Error(),
		}
	}
	return matches, nil
}
