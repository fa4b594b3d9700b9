package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// start launches a command without waiting for it. Replaced in tests.
var start = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// QuoteURL fills ticker into a template such as
// "https://finance.yahoo.com/quote/%s".
func QuoteURL(template, ticker string) (string, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return "", fmt.Errorf("empty ticker")
	}
	if strings.Count(template, "%s") != 1 {
		return "", fmt.Errorf("quote URL template must contain exactly one %%s, got %q", template)
	}
	return fmt.Sprintf(template, url.PathEscape(ticker)), nil
}

// OpenQuote opens the quote page for ticker.
func OpenQuote(template, ticker string) error {
	u, err := QuoteURL(template, ticker)
	if err != nil {
		return err
	}
	return Open(u)
}

func Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q (only http/https allowed)", u.Scheme)
	}

	name, args := command(runtime.GOOS, rawURL)
	return start(name, args...)
}

func command(goos, rawURL string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{rawURL}
	case "windows":
		// rundll32 avoids cmd /c start and its shell parsing
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}
	default:
		return "xdg-open", []string{rawURL}
	}
}
