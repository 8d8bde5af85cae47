package keys

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/logger"
	"golang.org/x/crypto/ssh"
)

// Generator names accepted by NewGenerator and the generator config key.
const (
	GeneratorSSHKeygen = "ssh-keygen"
	GeneratorNative    = "native"
)

// DefaultBits is the RSA modulus size of generated keys.
const DefaultBits = 2048

// Generator creates id_rsa and id_rsa.pub in dir.
type Generator interface {
	Generate(ctx context.Context, dir string) error
}

// NewGenerator returns the generator registered under name.
func NewGenerator(name string, log logger.Logger) (Generator, error) {
	switch name {
	case GeneratorSSHKeygen, "":
		return &SSHKeygen{Logger: log}, nil
	case GeneratorNative:
		return &NativeGenerator{Logger: log}, nil
	}
	return nil, errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown key generator: %s", name),
		"Supported generators: ssh-keygen, native")
}

// SSHKeygen generates the pair with the ssh-keygen binary.
type SSHKeygen struct {
	// Binary defaults to "ssh-keygen" looked up on PATH.
	Binary string
	Logger logger.Logger
}

// Generate runs ssh-keygen quietly with an empty passphrase and comment.
// Anything on stderr counts as failure, even with a zero exit.
func (g *SSHKeygen) Generate(ctx context.Context, dir string) error {
	loc := Location{Dir: dir}
	if err := ensureDir(dir); err != nil {
		return err
	}

	binary := g.Binary
	if binary == "" {
		binary = GeneratorSSHKeygen
	}
	args := []string{
		"-q",
		"-t", "rsa",
		"-b", fmt.Sprint(DefaultBits),
		"-C", "",
		"-N", "",
		"-f", loc.PrivatePath(),
	}
	logOrNoop(g.Logger).Debug("running %s %s", binary, strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return errors.New(errors.ErrKeygen,
			fmt.Sprintf("ssh-keygen reported a problem: %s", msg),
			"Run ssh-keygen manually to see the full output")
	}
	if runErr != nil {
		return errors.WrapWithCode(runErr, errors.ErrKeygen,
			"Failed to generate SSH key",
			"Ensure ssh-keygen is installed, or rerun with --generator native")
	}

	return verifyPair(loc)
}

// NativeGenerator generates the pair in-process. The private key is written
// in OpenSSH format without a passphrase, the public key without a comment.
type NativeGenerator struct {
	// Bits defaults to DefaultBits.
	Bits   int
	Logger logger.Logger
}

// Generate writes id_rsa (0600) and id_rsa.pub (0644) into dir.
func (g *NativeGenerator) Generate(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen, "Key generation cancelled", "")
	}

	loc := Location{Dir: dir}
	if err := ensureDir(dir); err != nil {
		return err
	}
	if _, err := os.Lstat(loc.PrivatePath()); err == nil {
		return errors.New(errors.ErrKeygen,
			fmt.Sprintf("%s already exists without %s", loc.PrivatePath(), loc.PublicPath()),
			fmt.Sprintf("Move %s aside, or restore its public half with: ssh-keygen -y -f %s > %s",
				loc.PrivatePath(), loc.PrivatePath(), loc.PublicPath()))
	}

	bits := g.Bits
	if bits <= 0 {
		bits = DefaultBits
	}
	logOrNoop(g.Logger).Debug("generating %d-bit RSA key in %s", bits, dir)

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen, "Failed to generate RSA key", "")
	}

	block, err := ssh.MarshalPrivateKey(privateKey, "")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen, "Failed to encode private key", "")
	}
	publicKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen, "Failed to encode public key", "")
	}

	if err := os.WriteFile(loc.PrivatePath(), pem.EncodeToMemory(block), 0600); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Failed to write %s", loc.PrivatePath()),
			"Check permissions on the key directory")
	}
	if err := os.WriteFile(loc.PublicPath(), ssh.MarshalAuthorizedKey(publicKey), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Failed to write %s", loc.PublicPath()),
			"Check permissions on the key directory")
	}

	return verifyPair(loc)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Failed to create key directory: %s", dir),
			"Check permissions on home directory")
	}
	return nil
}

func verifyPair(loc Location) error {
	ok, err := HasLocalKeyPair(loc.Dir)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrKeygen,
			"Key generation completed but key files not found",
			fmt.Sprintf("Expected %s and %s. Check disk space and permissions", loc.PrivatePath(), loc.PublicPath()))
	}
	return nil
}

func logOrNoop(log logger.Logger) logger.Logger {
	if log == nil {
		return logger.Noop()
	}
	return log
}
