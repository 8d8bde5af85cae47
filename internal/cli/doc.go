// Package cli implements the shellkey command-line interface.
//
// The root command takes one user@host argument and runs CopyKey, which
// walks the steps in a fixed order and stops at the first failure:
//
//  1. Check ~/.ssh for id_rsa and id_rsa.pub, generating the pair if either is missing
//  2. Read the remote password on the terminal
//  3. Connect, verifying the host key against known_hosts
//  4. Provision ~/.ssh and ~/.ssh/authorized_keys on the remote side
//  5. Append the public key to authorized_keys
//
// The argument is validated before any file, subprocess or network access.
// Usage and platform problems exit 2, every other failure exits 1.
//
// # Configuration
//
// Flags override SHELLKEY_* environment variables, which override
// ~/.config/shellkey/config.yaml, which overrides the built-in defaults.
// "shellkey config" prints the merged result.
//
// # Testing
//
// Everything that talks to the outside world (home directory lookup, PATH
// lookup, the key generator, the password prompt, the host key prompt and
// the SSH dialer) is a field on app or CopyKey, so tests swap in fakes and
// drive the remote side with pkg/sshutil/testing.MockClient.
package cli
