// api/model/identity.go
package model

// Identity is the authenticated principal bound to a current workspace, as
// carried by the validated session token. Handlers and the realtime handshake
// take the (UserID, WorkspaceID) pair from here and never from request
// parameters.
type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	WorkspaceID string `json:"workspace_id"`
}
