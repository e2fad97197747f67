package session

// UserRole is the user's role
type UserRole = string

const (
	// RoleTeacher identifies accounts that run classrooms
	RoleTeacher UserRole = "teacher"
	// RoleStudent identifies accounts enrolled in classrooms
	RoleStudent UserRole = "student"
)

const (
	// AvatarTeacher is assigned to teacher accounts at signup
	AvatarTeacher = "👩‍🏫"
	// AvatarStudent is assigned to student accounts at signup
	AvatarStudent = "👨‍🎓"
)

// User is the identity record the backends return. ID is backend-assigned
// and opaque. Role and Avatar are fixed at signup; Avatar is persisted
// as-is and never recomputed.
type User struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	Avatar string   `json:"avatar"`
}

// ValidRole checks if the role is one of the predefined valid roles
func ValidRole(role UserRole) bool {
	switch role {
	case RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, ValidRole(role)
}

// AvatarForRole derives the presentational glyph assigned at signup.
func AvatarForRole(role UserRole) string {
	if role == RoleTeacher {
		return AvatarTeacher
	}
	return AvatarStudent
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{RoleTeacher, RoleStudent}
}

// IsStudent reports whether the user holds the student role.
func (u User) IsStudent() bool {
	return u.Role == RoleStudent
}

// IsTeacher reports whether the user holds the teacher role.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}
