package cli

import (
	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/host"
	"github.com/shellkey/shellkey/internal/keys"
)

// Platform is what the local machine offers, resolved once at startup.
type Platform struct {
	Home string

	// KeygenPath is empty unless the ssh-keygen generator is selected.
	KeygenPath string
}

// ResolveHome returns the current user's home directory.
func ResolveHome(homeDir func() (string, error)) (string, error) {
	home, err := homeDir()
	if err != nil || home == "" {
		return "", errors.WrapWithCode(err, errors.ErrPlatform,
			host.Usage,
			"Couldn't determine your home directory. Set $HOME and try again.")
	}
	return home, nil
}

// DetectPlatform checks that the selected key generator can run here.
func DetectPlatform(home string, lookPath func(string) (string, error), generator string) (Platform, error) {
	p := Platform{Home: home}
	if generator != "" && generator != keys.GeneratorSSHKeygen {
		return p, nil
	}

	path, err := lookPath(keys.GeneratorSSHKeygen)
	if err != nil {
		return Platform{}, errors.WrapWithCode(err, errors.ErrPlatform,
			host.Usage,
			"ssh-keygen was not found on PATH. Install OpenSSH, or rerun with --generator native.")
	}
	p.KeygenPath = path
	return p, nil
}
