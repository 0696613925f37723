package com

import "testing"

func TestUidShort(t *testing.T) {
	a, b := NewUid(), NewUid()
	if len(a.Short()) != 4 {
		t.Errorf("wrong short id %q", a.Short())
	}
	if a.Short() == b.Short() {
		t.Errorf("same short ids %q for %v and %v", a.Short(), a, b)
	}
}
