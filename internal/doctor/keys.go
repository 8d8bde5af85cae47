package doctor

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/shellkey/shellkey/internal/keys"
)

// KeyPairCheck looks for id_rsa and id_rsa.pub and validates the public half.
type KeyPairCheck struct {
	Dir string
}

func (c *KeyPairCheck) Name() string     { return "key_pair" }
func (c *KeyPairCheck) Category() string { return CategoryKeys }

func (c *KeyPairCheck) Run() CheckResult {
	present, err := keys.HasLocalKeyPair(c.Dir)
	if err != nil {
		return fail(c, fmt.Sprintf("Can't list %s", c.Dir), err.Error())
	}
	if !present {
		return warn(c, fmt.Sprintf("No key pair in %s", c.Dir),
			"shellkey will generate one on the next run")
	}

	loc := keys.Location{Dir: c.Dir}
	if _, err := keys.ReadPublicKey(loc.PublicPath()); err != nil {
		return fail(c, fmt.Sprintf("%s is not a valid public key", loc.PublicPath()),
			"Move the broken pair aside and run shellkey again to generate a new one")
	}
	return pass(c, "Key pair found in "+c.Dir)
}

// KeyPermissionsCheck flags a private key or key directory readable by others.
type KeyPermissionsCheck struct {
	Dir string
}

func (c *KeyPermissionsCheck) Name() string     { return "key_permissions" }
func (c *KeyPermissionsCheck) Category() string { return CategoryKeys }

func (c *KeyPermissionsCheck) Run() CheckResult {
	loc := keys.Location{Dir: c.Dir}

	dirInfo, err := os.Stat(c.Dir)
	if err != nil {
		return pass(c, "Key directory will be created with mode 700")
	}
	if dirInfo.Mode().Perm()&0077 != 0 {
		return warn(c, fmt.Sprintf("%s is accessible by other users (%04o)", c.Dir, dirInfo.Mode().Perm()),
			"Fix: chmod 700 "+c.Dir)
	}

	keyInfo, err := os.Stat(loc.PrivatePath())
	if err != nil {
		return pass(c, fmt.Sprintf("%s has mode %04o", c.Dir, dirInfo.Mode().Perm()))
	}
	if keyInfo.Mode().Perm()&0077 != 0 {
		return fail(c, fmt.Sprintf("%s is readable by other users (%04o)", loc.PrivatePath(), keyInfo.Mode().Perm()),
			"Fix: chmod 600 "+loc.PrivatePath())
	}
	return pass(c, "Private key permissions are correct")
}

// GeneratorCheck verifies the configured key generator can run.
type GeneratorCheck struct {
	Generator string
	LookPath  func(string) (string, error)
}

func (c *GeneratorCheck) Name() string     { return "generator" }
func (c *GeneratorCheck) Category() string { return CategoryKeys }

func (c *GeneratorCheck) Run() CheckResult {
	if c.Generator == keys.GeneratorNative {
		return pass(c, "Keys are generated natively, no ssh-keygen needed")
	}
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(keys.GeneratorSSHKeygen)
	if err != nil {
		return fail(c, "ssh-keygen not found on PATH",
			"Install OpenSSH, or set generator: native")
	}
	return pass(c, "ssh-keygen found at "+path)
}
