// Package remote prepares the remote account and appends the public key.
//
// Everything here goes through sshutil.SSHClient.Exec, one command per
// SSH session, in the order listed below. A command that writes anything to
// stderr, or exits non-zero, stops the run with an ErrRemote error.
//
// # Provisioning
//
// Provisioner.Provision() makes sure ~/.ssh/authorized_keys exists:
//
//	ls -a                            # is .ssh in the home directory?
//	pwd                              # absolute home path
//	cd '<home>/.ssh/' && ls -a       # is authorized_keys there? (.ssh present)
//	mkdir -m 700 ~/.ssh              # (.ssh absent)
//	cd '<home>/.ssh/' && touch authorized_keys
//
// Existing directories and files are never recreated or truncated, so a
// second run issues no creation commands.
//
// # Transmission
//
// Transmitter.Transmit() appends one line:
//
//	echo '<public key>' >> '<home>/.ssh/authorized_keys'
//
// It never checks for duplicates. Transmitter.HasKey() answers that
// question separately with grep -qxF.
package remote
