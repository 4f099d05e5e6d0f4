package main

import "testing"

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"serve", "agent-mock", "users", "config", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected root command to include %s", name)
		}
	}
}
