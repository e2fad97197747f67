package session

import "context"

// View is the read-mostly surface handed to the rest of the application.
// It projects the Controller's state and forwards the session actions,
// so callers never touch the Controller, the stores, or the adapters
// directly. The surface is identical regardless of which backend variant
// is active.
type View struct {
	ctrl *Controller
}

// NewView wraps a Controller. Using the session surface without a
// controller is a programmer error, not a runtime condition, so a nil
// controller panics immediately.
func NewView(ctrl *Controller) *View {
	if ctrl == nil {
		panic("session: NewView requires a Controller; wire one before building the application surface")
	}
	return &View{ctrl: ctrl}
}

// CurrentUser returns the current user, or nil when anonymous.
func (v *View) CurrentUser() *User {
	return v.ctrl.CurrentUser()
}

// IsLoading reports whether a session operation is in flight.
func (v *View) IsLoading() bool {
	return v.ctrl.IsLoading()
}

// AllUsers returns the cached user list.
func (v *View) AllUsers() []User {
	return v.ctrl.AllUsers()
}

// GetStudents returns the cached users holding the student role.
func (v *View) GetStudents() []User {
	return v.ctrl.Students()
}

// GetStudentsByTeacher returns the students visible to the given
// teacher. Currently equivalent to GetStudents for any id, including an
// empty one.
func (v *View) GetStudentsByTeacher(teacherID string) []User {
	return v.ctrl.StudentsByTeacher(teacherID)
}

// Login forwards to the controller.
func (v *View) Login(ctx context.Context, email, password string) (*User, error) {
	return v.ctrl.Login(ctx, email, password)
}

// Signup forwards to the controller.
func (v *View) Signup(ctx context.Context, input SignUpInput) (*User, error) {
	return v.ctrl.Signup(ctx, input)
}

// Logout forwards to the controller.
func (v *View) Logout(ctx context.Context) {
	v.ctrl.Logout(ctx)
}

// Subscribe registers a change listener and returns its cancel func.
func (v *View) Subscribe(fn func(Snapshot)) (cancel func()) {
	return v.ctrl.Subscribe(fn)
}
