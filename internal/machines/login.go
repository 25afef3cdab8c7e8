package machines

import (
	"time"

	"github.com/roach88/automaton/internal/automaton"
	"github.com/roach88/automaton/internal/ir"
)

// LoginState is a state of the login machine.
type LoginState string

const (
	LoggedOut  LoginState = "LoggedOut"
	LoggingIn  LoginState = "LoggingIn"
	LoggedIn   LoginState = "LoggedIn"
	LoggingOut LoginState = "LoggingOut"
)

// LoginInput is an input of the login machine.
type LoginInput string

const (
	Login       LoginInput = "Login"
	LoginOK     LoginInput = "LoginOK"
	Logout      LoginInput = "Logout"
	LogoutOK    LoginInput = "LogoutOK"
	ForceLogout LoginInput = "ForceLogout"
)

// LoginMapping models a session with asynchronous login and logout.
// Login, Logout and ForceLogout start a request that answers with LoginOK
// or LogoutOK after delay.
func LoginMapping(delay time.Duration) automaton.NextMapping[LoginState, LoginInput] {
	return func(state LoginState, in LoginInput) (LoginState, automaton.Effect[LoginInput], bool) {
		switch {
		case state == LoggedOut && in == Login:
			return LoggingIn, automaton.After(delay, LoginOK), true
		case state == LoggingIn && in == LoginOK:
			return LoggedIn, nil, true
		case state == LoggedIn && in == Logout:
			return LoggingOut, automaton.After(delay, LogoutOK), true
		case state == LoggingOut && in == LogoutOK:
			return LoggedOut, nil, true
		case (state == LoggingIn || state == LoggedIn) && in == ForceLogout:
			return LoggingOut, automaton.After(delay, LogoutOK), true
		default:
			return state, nil, false
		}
	}
}

// NewLogin returns the login machine.
func NewLogin(opts Options) Machine {
	return &definition[LoginState, LoginInput]{
		name:        "login",
		description: "login session with asynchronous login and logout round trips",
		inputs:      []string{string(Login), string(LoginOK), string(Logout), string(LogoutOK), string(ForceLogout)},
		initial:     LoggedOut,
		next:        LoginMapping(opts.EffectDelay),
		parse:       parseEnum("login", Login, LoginOK, Logout, LogoutOK, ForceLogout),
		format:      formatString[LoginInput],
		encode:      func(s LoginState) ir.IRValue { return ir.IRString(s) },
	}
}
