package com

import "github.com/rs/xid"

// Uid identifies a relay connection, the ids grow with time.
type Uid struct{ xid.ID }

func NewUid() Uid { return Uid{xid.New()} }

// Short is the counter part of the id, enough to tell the connections
// apart in the logs.
func (u Uid) Short() string {
	s := u.String()
	return s[len(s)-4:]
}
