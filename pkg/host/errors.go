package host

import "errors"

var (
	ErrCreateFailed   = errors.New("couldn't create a session")
	ErrConnectTimeout = errors.New("relay connection timeout")
	ErrConnectFailed  = errors.New("relay connection failed")
	ErrCaptureFailed  = errors.New("screen capture failed")
	ErrBusy           = errors.New("session is already running")
	ErrNotActive      = errors.New("no active session")
	ErrCancelled      = errors.New("session start cancelled")
)
