package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const page = "# Types\n" +
	"\n" +
	"```{cfy:node} cloudify.openstack.nodes.Server\n" +
	":noindex:\n" +
	"\n" +
	"A server. See {cfy:rel}`cloudify.openstack.server_connected_to_port`.\n" +
	"```\n" +
	"\n" +
	"```python\n" +
	"{cfy:node}`not.a.role`\n" +
	"```\n" +
	"\n" +
	"````{cfy:rel} cloudify.openstack.server_connected_to_port\n" +
	"````\n" +
	"\n" +
	"Use {cfy:node}`the server <cloudify.openstack.nodes.Server>` or {cfy:node}`~cloudify.nodes.Root`.\n" +
	"Other domains like {py:class}`str` are left alone.\n"

func TestFindDirectives(t *testing.T) {
	src := []byte(page)
	ds := FindDirectives(src, "cfy")
	require.Len(t, ds, 2)

	server := ds[0]
	require.Equal(t, "node", server.Kind)
	require.Equal(t, "cloudify.openstack.nodes.Server", server.Argument)
	require.Equal(t, map[string]string{"noindex": ""}, server.Options)
	require.Equal(t, "A server. See {cfy:rel}`cloudify.openstack.server_connected_to_port`.\n", server.Body)
	require.Equal(t, 3, server.Line)
	require.Equal(t, "```{cfy:node}", string(src[server.Start:server.Start+13]))
	require.Equal(t, "```\n", string(src[server.End-4:server.End]))

	rel := ds[1]
	require.Equal(t, "rel", rel.Kind)
	require.Empty(t, rel.Body)
	require.Empty(t, rel.Options)
	require.Equal(t, "````\n", string(src[rel.End-5:rel.End]))
}

func TestFindDirectivesUnclosed(t *testing.T) {
	src := []byte("```{cfy:node} a.b\nbody\n")
	ds := FindDirectives(src, "cfy")
	require.Len(t, ds, 1)
	require.Equal(t, len(src), ds[0].End)
	require.Equal(t, "body\n", ds[0].Body)
}

func TestFindRoles(t *testing.T) {
	src := []byte(page)
	roles := FindRoles(src, "cfy")
	// the role inside the directive body is still part of a code block here
	require.Len(t, roles, 2)

	require.Equal(t, "node", roles[0].Kind)
	require.Equal(t, "cloudify.openstack.nodes.Server", roles[0].Target)
	require.Equal(t, "the server", roles[0].Display())
	require.Equal(t, "{cfy:node}`the server <cloudify.openstack.nodes.Server>`", string(src[roles[0].Start:roles[0].End]))

	require.Equal(t, "cloudify.nodes.Root", roles[1].Target)
	require.True(t, roles[1].Short)
	require.Equal(t, "Root", roles[1].Display())

	body := []byte(FindDirectives(src, "cfy")[0].Body)
	inner := FindRoles(body, "cfy")
	require.Len(t, inner, 1)
	require.Equal(t, "rel", inner[0].Kind)
	require.Equal(t, "cloudify.openstack.server_connected_to_port", inner[0].Target)
}

func TestFindRolesDoubleBackticks(t *testing.T) {
	src := []byte("x {cfy:node}`` a.b `` y\n")
	roles := FindRoles(src, "cfy")
	require.Len(t, roles, 1)
	require.Equal(t, "a.b", roles[0].Target)
	require.Equal(t, "{cfy:node}`` a.b ``", string(src[roles[0].Start:roles[0].End]))
}

func TestApply(t *testing.T) {
	src := []byte("A: {x}\nB: {y}\n")
	out, err := Apply(src, []Edit{
		{Start: 3, End: 6, Replacement: []byte("one")},
		{Start: 10, End: 13, Replacement: []byte("two")},
	})
	require.NoError(t, err)
	require.Equal(t, "A: one\nB: two\n", string(out))
	require.Equal(t, "A: {x}\nB: {y}\n", string(src))

	_, err = Apply(src, []Edit{{Start: 1, End: 4}, {Start: 3, End: 5}})
	require.Error(t, err)

	_, err = Apply(src, []Edit{{Start: 5, End: 99}})
	require.Error(t, err)
}

func TestRolesRewrittenWithApply(t *testing.T) {
	src := []byte("See {cfy:node}`a.b` and {cfy:node}`c.d`.\n")
	var edits []Edit
	for _, r := range FindRoles(src, "cfy") {
		edits = append(edits, Edit{Start: r.Start, End: r.End, Replacement: []byte("[" + r.Display() + "]")})
	}
	out, err := Apply(src, edits)
	require.NoError(t, err)
	require.Equal(t, "See [a.b] and [c.d].\n", string(out))
}
