// Package keys manages the local RSA key pair shellkey copies to remote hosts.
//
// # Key Discovery
//
// HasLocalKeyPair() looks for both halves of the pair in the key directory:
//
//	~/.ssh/id_rsa
//	~/.ssh/id_rsa.pub
//
// A missing directory is not an error. It just means there are no keys yet.
//
// # Key Generation
//
// A Generator creates the pair when it's missing. SSHKeygen shells out to
// ssh-keygen:
//
//	ssh-keygen -q -t rsa -b 2048 -C "" -N "" -f ~/.ssh/id_rsa
//
// NativeGenerator produces the same files in-process for machines without
// ssh-keygen on PATH.
//
// # Security Notes
//
// Keys are generated without a passphrase. The key directory is created
// with 0700, the private key written with 0600. The package never logs
// private key contents.
package keys
