package doctor

import (
	stderrors "errors"

	"github.com/shellkey/shellkey/internal/errors"
)

// ConfigCheck reports how loading the configuration went.
// Path is the file that was read, empty when only defaults applied.
type ConfigCheck struct {
	Path    string
	LoadErr error
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return CategoryConfig }

func (c *ConfigCheck) Run() CheckResult {
	if c.LoadErr != nil {
		msg, suggestion := "Config couldn't be loaded", c.LoadErr.Error()
		var skErr *errors.Error
		if stderrors.As(c.LoadErr, &skErr) {
			msg, suggestion = skErr.Message, skErr.Suggestion
		}
		return fail(c, msg, suggestion)
	}
	if c.Path == "" {
		return pass(c, "No config file, using built-in defaults")
	}
	return pass(c, "Config loaded from "+c.Path)
}
