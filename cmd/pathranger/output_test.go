package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbbreviateHome(t *testing.T) {
	tests := []struct {
		path, home, want string
	}{
		{"/home/u", "/home/u", "~"},
		{"/home/u/src/x", "/home/u", "~/src/x"},
		{"/home/u/src/x", "/home/u/", "~/src/x"},
		{"/home/user2/x", "/home/u", "/home/user2/x"},
		{"/etc", "/home/u", "/etc"},
		{"/etc", "", "/etc"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, abbreviateHome(tt.path, tt.home), tt.path)
	}
}

func TestExpandTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	assert.Equal(t, home, expandTilde("~"))
	assert.Equal(t, filepath.Join(home, "src"), expandTilde("~/src"))
	assert.Equal(t, "~user/src", expandTilde("~user/src"))
	assert.Equal(t, "/abs", expandTilde("/abs"))
}

func TestNewPrinter(t *testing.T) {
	for _, f := range []string{formatTable, formatPlain, formatJSON, formatYAML} {
		_, err := newPrinter(nil, f)
		assert.NoError(t, err, f)
	}
	_, err := newPrinter(nil, "csv")
	assert.ErrorIs(t, err, errUsage)
}
