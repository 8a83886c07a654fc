package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRelative(t *testing.T) {
	root := filepath.FromSlash("/work/project")

	assert.Equal(t, filepath.FromSlash("src/A.java"),
		ToRelative(filepath.FromSlash("/work/project/src/A.java"), root))

	// Outside the root stays absolute.
	outside := filepath.FromSlash("/other/B.java")
	assert.Equal(t, outside, ToRelative(outside, root))

	// Already relative passes through.
	assert.Equal(t, "src/A.java", ToRelative("src/A.java", root))
	assert.Equal(t, "", ToRelative("", root))
}

func TestContainsFragment(t *testing.T) {
	assert.True(t, ContainsFragment("src/main/mapper/User.xml", "mapper"))
	assert.True(t, ContainsFragment("src/Mapper/User.xml", "mapper"))
	assert.False(t, ContainsFragment("src/remapper/User.xml", "mapper"))
	assert.False(t, ContainsFragment("src/main/User.xml", ""))
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth("User.xml"))
	assert.Equal(t, 2, Depth("a/b/User.xml"))
	assert.Equal(t, 2, Depth("a//b/./User.xml"))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "UserMapper", BaseName("a/b/UserMapper.java"))
	assert.Equal(t, "UserMapper", BaseName("UserMapper.xml"))
	assert.Equal(t, "noext", BaseName("dir/noext"))
}
