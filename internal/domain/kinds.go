package domain

import "git.home.luguber.info/inful/blueprintdocs/internal/blueprint"

// Kind is one documented object type.
type Kind struct {
	// Name is the object type recorded in the inventory.
	Name string
	// Role is the directive and role name, as in {cfy:rel}.
	Role    string
	Section string
	Label   string
}

var kinds = []Kind{
	{Name: "node", Role: "node", Section: blueprint.SectionNodeTypes, Label: "Node types"},
	{Name: "relationship", Role: "rel", Section: blueprint.SectionRelationships, Label: "Relationships"},
	{Name: "datatype", Role: "datatype", Section: blueprint.SectionDataTypes, Label: "Data types"},
}

// Kinds lists the supported object kinds.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// KindByRole resolves a directive or role name. The object type name is
// accepted as well, so {cfy:relationship} works like {cfy:rel}.
func KindByRole(role string) (Kind, bool) {
	for _, k := range kinds {
		if k.Role == role || k.Name == role {
			return k, true
		}
	}
	return Kind{}, false
}
