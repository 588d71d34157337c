package synonyms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveUnknownTermIsNotAMember(t *testing.T) {
	tbl := New()
	_, ok := tbl.Resolve("hello")
	assert.False(t, ok)
}

func TestAddGroupResolvesEveryMemberToSameToken(t *testing.T) {
	tbl := New()
	tbl.AddGroup("car", "automobile", "vehicle")

	car, ok := tbl.Resolve("car")
	assert.True(t, ok)
	auto, ok := tbl.Resolve("automobile")
	assert.True(t, ok)
	assert.Equal(t, car, auto)
}

func TestAddGroupMergesOverlappingGroups(t *testing.T) {
	tbl := New()
	tbl.AddGroup("car", "automobile")
	tbl.AddGroup("automobile", "motorcar")

	carToken, _ := tbl.Resolve("car")
	motorcarToken, _ := tbl.Resolve("motorcar")
	assert.Equal(t, carToken, motorcarToken)
}
