package testing

import "path"

// WithFiles pre-populates the mock filesystem with files.
// Keys are paths, values are file contents.
func WithFiles(client *MockClient, files map[string]string) {
	for p, content := range files {
		_ = client.GetFS().WriteFile(p, []byte(content))
	}
}

// WithDirs pre-populates the mock filesystem with directories.
func WithDirs(client *MockClient, dirs []string) {
	for _, dir := range dirs {
		_ = client.GetFS().MkdirAll(dir)
	}
}

// WithSSHDir creates ~/.ssh on the remote with mode 0700 and no files in it.
func WithSSHDir(client *MockClient) string {
	dir := path.Join(client.Home(), ".ssh")
	_ = client.GetFS().Mkdir(dir, 0700)
	return dir
}

// WithAuthorizedKeys creates ~/.ssh/authorized_keys with the given content.
func WithAuthorizedKeys(client *MockClient, content string) string {
	WithSSHDir(client)
	file := path.Join(client.Home(), ".ssh", "authorized_keys")
	_ = client.GetFS().WriteFile(file, []byte(content))
	return file
}
