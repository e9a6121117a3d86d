package modal

// QueryParam and OpenValue select the open login dialog on the board page (/?login=open).
const (
	QueryParam = "login"
	OpenValue  = "open"
)

// State is the login dialog as rendered on one page.
type State struct {
	Open     bool
	Username string // kept in the input after a failed attempt
	Error    string
}

// Opened returns a visible dialog with empty inputs and no previous error.
func Opened() State {
	return State{Open: true}
}

// Closed returns a hidden dialog; any error text is cleared.
func Closed() State {
	return State{}
}

// Failed returns a visible dialog showing the login error with the username kept.
// The password is never carried over.
func Failed(username, msg string) State {
	return State{Open: true, Username: username, Error: msg}
}

// FromQuery decides whether the dialog is open from the login query value.
func FromQuery(value string) State {
	if value == OpenValue {
		return Opened()
	}
	return Closed()
}
