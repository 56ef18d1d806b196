package session

// Paths a guard redirects to.
const (
	SignInPath = "/login"
	BrowsePath = "/browse"
)

// Decision is the outcome of a route guard.
type Decision int

const (
	Allow Decision = iota
	// RedirectSignIn: nobody is signed in.
	RedirectSignIn
	// RedirectBrowse: signed in, but the route is admin-only and the profile
	// is not an admin.
	RedirectBrowse
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectSignIn:
		return "redirect_sign_in"
	case RedirectBrowse:
		return "redirect_browse"
	default:
		return "unknown"
	}
}

// Location returns the redirect target, or "" for Allow.
func (d Decision) Location() string {
	switch d {
	case RedirectSignIn:
		return SignInPath
	case RedirectBrowse:
		return BrowsePath
	default:
		return ""
	}
}

// Check is the whole access-control rule of the app. It is a pure function of
// the snapshot so the HTTP guard, the templates and tests all agree.
func Check(s Snapshot, adminOnly bool) Decision {
	if !s.Authenticated() {
		return RedirectSignIn
	}
	if adminOnly && !s.IsAdmin {
		return RedirectBrowse
	}
	return Allow
}
