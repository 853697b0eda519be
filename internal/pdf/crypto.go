package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrPasswordRequired is returned for encrypted files opened without
// working credentials.
var ErrPasswordRequired = errors.New("pdf: password required")

// PasswordCredentials contains the passwords for a PDF file.
type PasswordCredentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

func (c *PasswordCredentials) empty() bool {
	return c == nil || (c.UserPassword == "" && c.OwnerPassword == "")
}

// configuration returns a pdfcpu configuration carrying the passwords.
func (c *PasswordCredentials) configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if c != nil {
		conf.UserPW = c.UserPassword
		conf.OwnerPW = c.OwnerPassword
	}
	return conf
}

// IsEncrypted reports whether a PDF file is password protected.
func IsEncrypted(filename string) (bool, error) {
	_, err := api.PageCountFile(filename)
	if err == nil {
		return false, nil
	}
	if IsPasswordError(err) {
		return true, nil
	}
	return false, fmt.Errorf("failed to check PDF encryption status: %w", err)
}

// Decrypt writes a decrypted copy of filename to a temporary file. The
// returned cleanup removes it; for unencrypted input the original path is
// returned with a no-op cleanup.
func Decrypt(filename string, creds *PasswordCredentials) (string, func(), error) {
	noop := func() {}

	encrypted, err := IsEncrypted(filename)
	if err != nil {
		return "", noop, err
	}
	if !encrypted {
		return filename, noop, nil
	}
	if creds.empty() {
		return "", noop, fmt.Errorf("%w: %s", ErrPasswordRequired, filename)
	}

	tmp, err := os.CreateTemp("", "qrscan-decrypted-*.pdf")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temporary file: %w", err)
	}
	_ = tmp.Close()
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if err := api.DecryptFile(filename, tmp.Name(), creds.configuration()); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("%w: failed to decrypt %s: %w", ErrPasswordRequired, filename, err)
	}
	return tmp.Name(), cleanup, nil
}

// IsPasswordError reports whether err stems from encryption or bad
// credentials.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPasswordRequired) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
