// api/model/neo4j/nodes.go
package casaflow_neo4j

// Node Labels
const (
	// LabelWorkspace represents a tenant workspace in the system
	LabelWorkspace = "Workspace"

	// LabelUser represents a user in the system
	LabelUser = "User"

	// LabelRole represents a workspace-scoped role that can be assigned to members
	LabelRole = "Role"
)
