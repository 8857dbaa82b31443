package kernel

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

type OrganizationID string

func NewOrganizationID(id string) OrganizationID { return OrganizationID(id) }
func (o OrganizationID) String() string          { return string(o) }
func (o OrganizationID) IsEmpty() bool           { return string(o) == "" }

type EnvironmentID string

func NewEnvironmentID(id string) EnvironmentID { return EnvironmentID(id) }
func (e EnvironmentID) String() string         { return string(e) }
func (e EnvironmentID) IsEmpty() bool          { return string(e) == "" }

// Role is the access level a user holds inside an organization. The
// permission set for each role is a fixed table owned by the rbac package.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

func (r Role) String() string { return string(r) }

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}
