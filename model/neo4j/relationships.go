// api/model/neo4j/relationships.go
package casaflow_neo4j

// Relationship Types
const (
	// RelMemberOf represents the membership of a user in a workspace.
	// Carries roleId and status properties.
	RelMemberOf = "MEMBER_OF"

	// RelScopedTo represents the relationship between a role and its workspace
	RelScopedTo = "SCOPED_TO"
)
