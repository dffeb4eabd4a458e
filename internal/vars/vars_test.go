package vars

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommitShort(t *testing.T) {
	orig := Commit
	t.Cleanup(func() { Commit = orig })

	Commit = "da15c174cd2ada1ad247906536c101e8f6799def"
	assert.Equal(t, "da15c17", CommitShort())

	Commit = "abc"
	assert.Equal(t, "abc", CommitShort())
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Fprint(&buf)

	assert.Regexp(t, `(?m)^name:\s+Lobby$`, buf.String())
	assert.Regexp(t, `(?m)^license:\s+`+License+`$`, buf.String())
	assert.Regexp(t, `(?m)^go:\s+\S+`, buf.String())
}

func TestInfo(t *testing.T) {
	info := Info()
	assert.Equal(t, Name, info.Name)
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, URL, info.URL)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}
