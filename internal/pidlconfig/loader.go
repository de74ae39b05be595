package pidlconfig

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/havenworks/pidl"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Parse decodes and validates a YAML document's bytes into a Document,
// without building a Pipeline.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pidlconfig: decode: %w", err)
	}

	if err := validatorInstance().Struct(&doc); err != nil {
		return nil, fmt.Errorf("pidlconfig: validate: %w", err)
	}

	if err := validateOnlyIfs(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// validateOnlyIfs enforces "at most one of key/value" on every only_if
// block, a constraint validator/v10 struct tags can't express directly.
func validateOnlyIfs(doc *Document) error {
	check := func(scope string, o *OnlyIfDef) error {
		if o == nil {
			return nil
		}
		if o.Key != "" && o.Value != nil {
			return fmt.Errorf("pidlconfig: %s: only_if accepts exactly one of key or value", scope)
		}
		return nil
	}

	for _, task := range doc.Tasks {
		if err := check(fmt.Sprintf("task %q", task.Name), task.OnlyIf); err != nil {
			return err
		}
		for _, action := range task.Actions {
			if err := check(fmt.Sprintf("task %q action %q", task.Name, action.Name), action.OnlyIf); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads a YAML document from path, validates it, and builds the
// resulting *pidl.Pipeline (equivalent to Parse followed by Build).
func Load(path string, factories map[string]pidl.ActionFactory, ctxOpts ...pidl.ContextOption) (*pidl.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pidlconfig: read %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return Build(doc, factories, ctxOpts...)
}
