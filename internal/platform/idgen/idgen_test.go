package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextIsMonotonicAndPrefixed(t *testing.T) {
	a := Session()
	b := Session()
	require.True(t, strings.HasPrefix(a, PrefixSession))
	require.True(t, strings.HasPrefix(b, PrefixSession))
	require.NotEqual(t, a, b)
	require.Less(t, a, b, "later ids should sort after earlier ones")
}

func TestPrefixHelpers(t *testing.T) {
	require.True(t, strings.HasPrefix(Project(), PrefixProject))
	require.True(t, strings.HasPrefix(Task(), PrefixTask))
	require.True(t, strings.HasPrefix(Mail(), PrefixMail))
	require.True(t, strings.HasPrefix(Event(), PrefixEvent))
	require.True(t, strings.HasPrefix(Doc(), PrefixDoc))
	require.True(t, strings.HasPrefix(TeamMember(), PrefixTeamMember))
	require.True(t, strings.HasPrefix(Team(), PrefixTeam))
	require.True(t, strings.HasPrefix(Template(), PrefixTemplate))
}
