package sshexec

import (
	"os/exec"
	"strings"
	"testing"
)

func TestGenerateAskpassToken_Unique(t *testing.T) {
	a, err := GenerateAskpassToken()
	if err != nil {
		t.Fatalf("GenerateAskpassToken: %v", err)
	}
	b, err := GenerateAskpassToken()
	if err != nil {
		t.Fatalf("GenerateAskpassToken: %v", err)
	}
	if a == b {
		t.Fatal("GenerateAskpassToken() returned the same token twice")
	}
	if len(a) != 64 { // 32 bytes hex-encoded
		t.Fatalf("GenerateAskpassToken() length = %d, want 64", len(a))
	}
}

func TestConfigureAskpass_SetsEnvAndClosesStdin(t *testing.T) {
	cmd := exec.Command("true")
	cmd.Stdin = strings.NewReader("should be cleared")

	if err := ConfigureAskpass(cmd, "myprofile", "tok123"); err != nil {
		t.Fatalf("ConfigureAskpass: %v", err)
	}
	if cmd.Stdin != nil {
		t.Fatal("ConfigureAskpass did not clear Stdin")
	}

	env := strings.Join(cmd.Env, "\n")
	for _, want := range []string{
		"RSI_ASKPASS_ALIAS=myprofile",
		"RSI_ASKPASS_TOKEN=tok123",
		"SSH_ASKPASS_REQUIRE=force",
	} {
		if !strings.Contains(env, want) {
			t.Errorf("cmd.Env missing %q; got %v", want, cmd.Env)
		}
	}
}
