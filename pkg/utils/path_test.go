package utils

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAbsPath(t *testing.T) {
	assert := assert.New(t)

	abs := GetAbsPath("conf/config.yaml")
	assert.True(filepath.IsAbs(abs))
	assert.True(strings.HasSuffix(abs, filepath.Join("conf", "config.yaml")))
}

func TestGetAbsPath_AlreadyAbsolute(t *testing.T) {
	assert := assert.New(t)

	input := filepath.Join(string(filepath.Separator), "tmp", "config.yaml")
	assert.Equal(input, GetAbsPath(input))
}
