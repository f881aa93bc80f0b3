// api/registry/registry.go
package registry

// Permission is an atomic capability identifier, e.g. "VIEW_LEADS".
type Permission = string

// Named atoms. These are the only permission strings the rest of the codebase
// should reference; handlers and guards never spell out raw literals.
const (
	ViewProperties   Permission = "VIEW_PROPERTIES"
	CreateProperties Permission = "CREATE_PROPERTIES"
	EditProperties   Permission = "EDIT_PROPERTIES"
	DeleteProperties Permission = "DELETE_PROPERTIES"

	ViewLeads   Permission = "VIEW_LEADS"
	CreateLeads Permission = "CREATE_LEADS"
	EditLeads   Permission = "EDIT_LEADS"
	DeleteLeads Permission = "DELETE_LEADS"
	AssignLeads Permission = "ASSIGN_LEADS"

	ViewDeals   Permission = "VIEW_DEALS"
	CreateDeals Permission = "CREATE_DEALS"
	EditDeals   Permission = "EDIT_DEALS"
	DeleteDeals Permission = "DELETE_DEALS"

	ViewContacts   Permission = "VIEW_CONTACTS"
	CreateContacts Permission = "CREATE_CONTACTS"
	EditContacts   Permission = "EDIT_CONTACTS"
	DeleteContacts Permission = "DELETE_CONTACTS"

	ViewTeam      Permission = "VIEW_TEAM"
	InviteMembers Permission = "INVITE_MEMBERS"
	RemoveMembers Permission = "REMOVE_MEMBERS"

	ViewReports   Permission = "VIEW_REPORTS"
	ExportReports Permission = "EXPORT_REPORTS"

	ManageSettings Permission = "MANAGE_SETTINGS"
	ManageBilling  Permission = "MANAGE_BILLING"
)

// Group is an ordered bundle of related permission atoms shown together in
// role-editing UIs.
type Group struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// catalog is the source of truth for what a role can grant. Immutable at
// runtime; created once, never mutated by tenants.
var catalog = []Group{
	{Name: "Properties", Permissions: []Permission{ViewProperties, CreateProperties, EditProperties, DeleteProperties}},
	{Name: "Leads", Permissions: []Permission{ViewLeads, CreateLeads, EditLeads, DeleteLeads, AssignLeads}},
	{Name: "Deals", Permissions: []Permission{ViewDeals, CreateDeals, EditDeals, DeleteDeals}},
	{Name: "Contacts", Permissions: []Permission{ViewContacts, CreateContacts, EditContacts, DeleteContacts}},
	{Name: "Team", Permissions: []Permission{ViewTeam, InviteMembers, RemoveMembers}},
	{Name: "Reports", Permissions: []Permission{ViewReports, ExportReports}},
	{Name: "Settings", Permissions: []Permission{ManageSettings, ManageBilling}},
}

var known map[Permission]struct{}

func init() {
	known = make(map[Permission]struct{})
	for _, g := range catalog {
		for _, p := range g.Permissions {
			known[p] = struct{}{}
		}
	}
}

// Groups returns the ordered permission catalog grouped by feature area.
func Groups() []Group {
	out := make([]Group, len(catalog))
	for i, g := range catalog {
		perms := make([]Permission, len(g.Permissions))
		copy(perms, g.Permissions)
		out[i] = Group{Name: g.Name, Permissions: perms}
	}
	return out
}

// All returns every permission atom in catalog order.
func All() []Permission {
	var out []Permission
	for _, g := range catalog {
		out = append(out, g.Permissions...)
	}
	return out
}

// Known reports whether the atom exists in the catalog. Authorization is
// closed by default: callers treat unknown atoms as never granted.
func Known(p Permission) bool {
	_, ok := known[p]
	return ok
}
