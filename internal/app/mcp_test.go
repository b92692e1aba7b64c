package app

import (
	"strings"
	"testing"
)

func TestCommands_Registered(t *testing.T) {
	want := map[string]bool{"analyze": false, "sessions": false, "classify": false, "track": false, "suggest": false, "watch": false, "mcp": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s subcommand not registered on rootCmd", name)
		}
	}
}

func TestMCPCmd_RejectsArgs(t *testing.T) {
	if err := mcpCmd.Args(mcpCmd, []string{"extra"}); err == nil {
		t.Error("expected mcp to reject positional arguments")
	}
}

func TestMCPCmd_ServesStdio(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := writeConfig(t, t.TempDir())

	rootCmd.SetIn(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	out, err := execute(t, "mcp", "--config", cfg)
	if err != nil {
		t.Fatalf("mcp: %v", err)
	}
	if strings.TrimSpace(out) != `{"jsonrpc":"2.0","id":1,"result":{}}` {
		t.Errorf("unexpected response: %s", out)
	}
}
