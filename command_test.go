package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestServeFlags(t *testing.T) {
	root := newRootCommand()

	for _, name := range []string{"config", "shutdown-timeout"} {
		if root.Flags().Lookup(name) == nil {
			t.Fatalf("root command is missing flag %q", name)
		}
	}
}
