package keys

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shellkey/shellkey/internal/errors"
	"golang.org/x/crypto/ssh"
)

// File names of the managed key pair.
const (
	PrivateKeyName = "id_rsa"
	PublicKeyName  = "id_rsa.pub"
)

// Location points at the directory holding the key pair.
type Location struct {
	Dir string
}

// DefaultLocation returns <home>/.ssh.
func DefaultLocation(home string) Location {
	return Location{Dir: filepath.Join(home, ".ssh")}
}

// PrivatePath returns the path of the private key.
func (l Location) PrivatePath() string {
	return filepath.Join(l.Dir, PrivateKeyName)
}

// PublicPath returns the path of the public key.
func (l Location) PublicPath() string {
	return filepath.Join(l.Dir, PublicKeyName)
}

// HasLocalKeyPair reports whether dir lists both id_rsa and id_rsa.pub.
// A directory that doesn't exist yet counts as "no keys"; other listing
// failures are returned.
func HasLocalKeyPair(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Couldn't list key directory %s", dir),
			"Check that it is a readable directory")
	}

	var hasPrivate, hasPublic bool
	for _, e := range entries {
		switch e.Name() {
		case PrivateKeyName:
			hasPrivate = true
		case PublicKeyName:
			hasPublic = true
		}
	}
	return hasPrivate && hasPublic, nil
}

// ReadPublicKey reads a public key file and returns its single
// authorized_keys line without the trailing newline.
func ReadPublicKey(pubPath string) (string, error) {
	data, err := os.ReadFile(pubPath)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Failed to read public key: %s", pubPath),
			"Check that the file exists and is readable")
	}

	line := strings.TrimSpace(string(data))
	if _, _, _, rest, err := ssh.ParseAuthorizedKey([]byte(line)); err != nil || len(rest) > 0 {
		if err == nil {
			err = stderrors.New("more than one key in file")
		}
		return "", errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("%s is not a valid public key", pubPath),
			"Move the broken pair aside and run shellkey again to generate a new one")
	}
	return line, nil
}
