package httpx

import (
	"strconv"
	"testing"
)

func TestListenerCreation(t *testing.T) {
	tests := []struct {
		addr   string
		random bool
		error  bool
	}{
		{addr: ":", random: true},
		{addr: ":0", random: true},
		{addr: "", random: true},
		{addr: "https://garbage.com:99a9a", error: true},
		{addr: "localhost:abc1", error: true},
	}

	for _, test := range tests {
		ls, err := NewListener(test.addr, false)

		if test.error {
			if err == nil {
				t.Errorf("expected error, but got none")
			}
			continue
		}
		if err != nil {
			t.Errorf("unexpected error %v", err)
			continue
		}

		if port := ls.GetPort(); test.random && port == 0 {
			t.Errorf("expected a random port, got %v", port)
		}
		_ = ls.Close()
	}
}

func TestFailOnPortInUse(t *testing.T) {
	a, err := NewListener("127.0.0.1:0", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = a.Close() }()
	_, err = NewListener("127.0.0.1:"+strconv.Itoa(a.GetPort()), false)
	if err == nil {
		t.Errorf("expected busy port error, but got none")
	}
}

func TestListenerPortRoll(t *testing.T) {
	a, err := NewListener("127.0.0.1:0", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = a.Close() }()
	b, err := NewListener("127.0.0.1:"+strconv.Itoa(a.GetPort()), true)
	if err != nil {
		t.Fatalf("expected no port error, but got %v", err)
	}
	if b.GetPort() == a.GetPort() {
		t.Errorf("the port should be rolled")
	}
	_ = b.Close()
}
