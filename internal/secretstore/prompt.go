package secretstore

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"
)

// PromptPassword reads a password from the controlling terminal without
// echoing it, grounded on the teacher's PromptPassword
// (internal/keyring/prompt.go).
func PromptPassword(profileName string) (string, error) {
	fmt.Fprintf(os.Stderr, "Enter password for %q: ", profileName)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// PromptAndConfirmPassword prompts twice and requires the entries to
// match, grounded on the teacher's PromptAndConfirmPassword.
func PromptAndConfirmPassword(profileName string) (string, error) {
	p1, err := PromptPassword(profileName)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(os.Stderr, "Confirm password for %q: ", profileName)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password confirmation: %w", err)
	}
	if p1 != string(b) {
		return "", fmt.Errorf("passwords do not match")
	}
	return p1, nil
}
