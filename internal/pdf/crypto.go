package pdf

import (
	"errors"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrPassword reports a missing or wrong PDF password.
var ErrPassword = errors.New("pdf is password protected")

// Credentials carries the passwords for an encrypted PDF.
type Credentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

// Configuration returns a pdfcpu configuration carrying creds. creds may be
// nil.
func Configuration(creds *Credentials) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if creds != nil {
		conf.UserPW = creds.UserPassword
		conf.OwnerPW = creds.OwnerPassword
	}
	return conf
}

// IsPasswordError reports whether err came from missing or wrong credentials.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPassword) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
