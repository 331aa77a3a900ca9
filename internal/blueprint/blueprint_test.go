package blueprint

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
)

const pluginYAML = `
plugins:
  openstack:
    executor: central_deployment_agent
node_types:
  cloudify.openstack.nodes.Server:
    derived_from: cloudify.nodes.Compute
    properties:
      image:
        description: >
          The image for the server.
      flavor:
        description: The flavor.
        default: ''
      use_external_resource:
        description: Use an existing server.
        default: false
      resource_id:
        description: Name of the server.
        required: false
      server:
        description: Extra server keyword arguments.
        default: {}
  cloudify.openstack.nodes.Network:
    derived_from: cloudify.nodes.Network
relationships:
  cloudify.openstack.server_connected_to_port:
    derived_from: cloudify.relationships.connected_to
data_types:
  cloudify.datatypes.openstack.Config:
    properties:
      username:
        description: User name.
`

func parse(t *testing.T, doc string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &n))
	return documentRoot(&n)
}

func keys(n *yaml.Node) []string {
	var out []string
	for _, kv := range pairs(n) {
		out = append(out, kv[0].Value)
	}
	return out
}

func TestMergeNestedMappingsAndOverrides(t *testing.T) {
	a := parse(t, "a: 1\nb:\n  x: 1\n  y: 2\nc: [1]\n")
	b := parse(t, "b:\n  y: 3\n  z: 4\nc: [2]\nd: new\n")

	Merge(a, b)

	var got map[string]any
	require.NoError(t, a.Decode(&got))
	require.Equal(t, map[string]any{
		"a": 1,
		"b": map[string]any{"x": 1, "y": 3, "z": 4},
		"c": []any{2},
		"d": "new",
	}, got)
	require.Equal(t, []string{"a", "b", "c", "d"}, keys(a))
	require.Equal(t, []string{"x", "y", "z"}, keys(a.Content[3]))
}

func TestMergeMappingReplacesScalar(t *testing.T) {
	a := parse(t, "a: scalar\n")
	b := parse(t, "a:\n  k: v\n")
	Merge(a, b)

	var got map[string]map[string]string
	require.NoError(t, a.Decode(&got))
	require.Equal(t, "v", got["a"]["k"])
}

func TestMergeExpandsMergeKeys(t *testing.T) {
	a := parse(t, "base: &base\n  x: 1\nchild:\n  <<: *base\n  y: 2\n")
	out := newMapping()
	Merge(out, a)
	require.Equal(t, []string{"x", "y"}, keys(out.Content[3]))
}

func TestRegistryDecodesInOrder(t *testing.T) {
	reg, err := NewRegistry(parse(t, pluginYAML))
	require.NoError(t, err)

	require.Equal(t, []string{"cloudify.openstack.nodes.Server", "cloudify.openstack.nodes.Network"}, reg.Names(SectionNodeTypes))

	server, ok := reg.Lookup(SectionNodeTypes, "cloudify.openstack.nodes.Server")
	require.True(t, ok)
	require.Equal(t, "cloudify.nodes.Compute", server.DerivedFrom)

	var names []string
	for _, p := range server.Properties {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"image", "flavor", "use_external_resource", "resource_id", "server"}, names)

	image, _ := server.Property("image")
	require.True(t, image.HasDescription)
	require.True(t, image.Required)
	_, ok = image.Default()
	require.False(t, ok)

	flavor, _ := server.Property("flavor")
	def, ok := flavor.Default()
	require.True(t, ok)
	require.Empty(t, def)

	external, _ := server.Property("use_external_resource")
	def, ok = external.Default()
	require.True(t, ok)
	require.Equal(t, "false", def)

	resourceID, _ := server.Property("resource_id")
	require.False(t, resourceID.Required)

	extra, _ := server.Property("server")
	def, _ = extra.Default()
	require.Equal(t, "{}", def)
}

func TestRegistryTakeConsumes(t *testing.T) {
	reg, err := NewRegistry(parse(t, pluginYAML))
	require.NoError(t, err)

	typ, err := reg.Take(SectionNodeTypes, " cloudify.openstack.nodes.Server ")
	require.NoError(t, err)
	require.Equal(t, "cloudify.openstack.nodes.Server", typ.Name)

	_, err = reg.Take(SectionNodeTypes, "cloudify.openstack.nodes.Server")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryBlueprint))

	_, err = reg.Take(SectionNodeTypes, "cloudify.nodes.Missing")
	require.Error(t, err)

	_, err = reg.Take("workflows", "x")
	require.Error(t, err)

	remaining := reg.Remaining()
	require.Len(t, remaining, 3)
	require.Equal(t, "cloudify.openstack.nodes.Network from node_types", remaining[0].String())
	require.Equal(t, SectionRelationships, remaining[1].Section)
	require.Equal(t, SectionDataTypes, remaining[2].Section)

	require.Len(t, reg.Remaining(SectionRelationships), 1)

	reg.Reset()
	require.Len(t, reg.Remaining(), 4)
}

func TestRegistryRejectsBadSection(t *testing.T) {
	_, err := NewRegistry(parse(t, "node_types: [a, b]\n"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryBlueprint))
}

func TestLoaderMergesLocalAndRemote(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(pluginYAML), 0o600))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/types.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("node_types:\n  cloudify.openstack.nodes.Network:\n    description: overridden\n  cloudify.nodes.Root: {}\n"))
	}))
	t.Cleanup(server.Close)

	l := &Loader{BaseDir: dir}
	reg, err := l.LoadRegistry(t.Context(), []string{"plugin.yaml", server.URL + "/types.yaml"})
	require.NoError(t, err)

	network, ok := reg.Lookup(SectionNodeTypes, "cloudify.openstack.nodes.Network")
	require.True(t, ok)
	require.Equal(t, "overridden", network.Description)
	require.Equal(t, "cloudify.nodes.Network", network.DerivedFrom)
	require.Equal(t, []string{
		"cloudify.openstack.nodes.Server",
		"cloudify.openstack.nodes.Network",
		"cloudify.nodes.Root",
	}, reg.Names(SectionNodeTypes))

	require.Equal(t, []string{filepath.Join(dir, "plugin.yaml")}, l.LocalPaths([]string{"plugin.yaml", server.URL}))
}

func TestLoaderErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	l := &Loader{BaseDir: t.TempDir()}

	_, err := l.Load(t.Context(), []string{"missing.yaml"})
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	_, err = l.Load(t.Context(), []string{server.URL + "/plugin.yaml"})
	require.True(t, errors.HasCategory(err, errors.CategoryNetwork))

	bad := filepath.Join(l.BaseDir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- a\n- b\n"), 0o600))
	_, err = l.Load(t.Context(), []string{"bad.yaml"})
	require.True(t, errors.HasCategory(err, errors.CategoryBlueprint))
}

func TestHTTPClientBlocksCrossHostRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://elsewhere.invalid/plugin.yaml", http.StatusFound)
	}))
	t.Cleanup(server.Close)

	l := &Loader{Client: NewHTTPClient()}
	_, err := l.Load(t.Context(), []string{server.URL + "/plugin.yaml"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "redirect to different host blocked")
}
