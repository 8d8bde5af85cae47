package prompt

import (
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/pkg/sshutil"
	"golang.org/x/crypto/ssh"
)

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(title, description string) (bool, error)
}

// HuhConfirmer asks with a huh form on the terminal.
type HuhConfirmer struct{}

// Confirm shows the question and defaults to "No".
func (HuhConfirmer) Confirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)

	if err := form.Run(); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return false, errors.New(errors.ErrPrompt, "Cancelled", "")
		}
		return false, errors.WrapWithCode(err, errors.ErrPrompt,
			"Failed to get user input",
			"")
	}
	return ok, nil
}

// ConfirmHostKey builds the trust callback for hosts missing from
// known_hosts. With autoYes set every unknown key is accepted unasked.
func ConfirmHostKey(c Confirmer, autoYes bool) sshutil.TrustFunc {
	return func(hostname string, key ssh.PublicKey) (bool, error) {
		if autoYes {
			return true, nil
		}
		return c.Confirm(
			fmt.Sprintf("The authenticity of host %s can't be established.", hostname),
			fmt.Sprintf("%s key fingerprint is %s.\nTrust this host and add it to known_hosts?",
				key.Type(), ssh.FingerprintSHA256(key)),
		)
	}
}
