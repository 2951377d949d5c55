package sshexec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
)

// Askpass env vars set on the ssh child, resolving spec §9's open
// question the same way the teacher does: SSH_ASKPASS is repointed at
// the running binary, and a per-spawn random token travels through the
// environment so the askpass invocation can be matched back to the
// session that spawned it. The askpass helper (cmd.RunAskpass) reads
// only the token; the daemon maps it to the profile, so the alias
// variable is informational. Grounded on
// internal/keyring/askpass.go's ConfigureSSHAskpass.
const (
	EnvAskpassAlias = "RSI_ASKPASS_ALIAS"
	EnvAskpassToken = "RSI_ASKPASS_TOKEN"
)

// GenerateAskpassToken returns a random 256-bit hex token, one per
// password-auth session spawn.
func GenerateAskpassToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate askpass token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ConfigureAskpass points cmd's SSH_ASKPASS at the running executable and
// passes profileName/token through the environment, so the supervisor can
// later answer the askpass subcommand's request over the daemon socket
// using the same token. The child's stdin is left closed, consistent with
// spec §4.4 step 1 ("stdin closed").
func ConfigureAskpass(cmd *exec.Cmd, profileName, token string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve askpass executable: %w", err)
	}

	cmd.Env = append(cmd.Env,
		fmt.Sprintf("SSH_ASKPASS=%s", execPath),
		fmt.Sprintf("%s=%s", EnvAskpassAlias, profileName),
		fmt.Sprintf("%s=%s", EnvAskpassToken, token),
		"SSH_ASKPASS_REQUIRE=force",
		"DISPLAY=:0",
	)
	cmd.Stdin = nil
	return nil
}
