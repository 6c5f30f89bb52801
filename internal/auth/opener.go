package auth

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Opener hands the authorize URL to the user.
type Opener interface {
	Open(url string) error
}

// BrowserOpener opens URLs with the platform's default browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	// Reap the launcher; its exit status says nothing about the browser.
	go func() { _ = cmd.Wait() }()
	return nil
}

// PrintOpener writes the URL for the user to open by hand.
type PrintOpener struct {
	W io.Writer
}

func (p PrintOpener) Open(url string) error {
	_, err := fmt.Fprintf(p.W, "Open this URL to sign in:\n  %s\n", url)
	return err
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error { return f(url) }
