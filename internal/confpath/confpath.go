// Package confpath locates per-package YAML config files.
package confpath

import (
	"fmt"
	"os"
	"path/filepath"
)

// Candidates returns the relative paths checked for the config called name,
// in order.
func Candidates(name string) []string {
	return []string{
		name + ".yaml",
		name + ".yml",
		filepath.Join(name, name+".yaml"),
		filepath.Join(name, name+".yml"),
	}
}

// Dirs returns the directories searched: the working directory, then the
// directory holding the executable.
func Dirs() []string {
	dirs := []string{"."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}

// Find returns the first candidate of name that exists as a regular file.
func Find(name string) (string, error) {
	return FindIn(Dirs(), name)
}

func FindIn(dirs []string, name string) (string, error) {
	candidates := Candidates(name)
	for _, dir := range dirs {
		for _, rel := range candidates {
			p := rel
			if dir != "." {
				p = filepath.Join(dir, rel)
			}
			if st, err := os.Stat(p); err == nil && !st.IsDir() {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%s config not found (expected %v)", name, candidates)
}
