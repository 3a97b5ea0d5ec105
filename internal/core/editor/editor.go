// Package editor holds the kind-specific editors that the generic field
// engine does not drive. Each editor owns the correctness of its values.
package editor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/go-viper/mapstructure/v2"
)

// Editor is a custom form for one kind.
type Editor interface {
	// Name is the marker referenced by catalog.CustomEditor.
	Name() string
	// Defaults returns the initial values of the form.
	Defaults() core.Values
	// Validate returns core.ValidationErrors when the values cannot be committed.
	Validate(values core.Values) error
}

type registry struct {
	mu      sync.RWMutex
	editors map[string]Editor
}

var editors = &registry{editors: make(map[string]Editor)}

// Register adds an editor. Registering the same name twice panics.
func Register(e Editor) {
	editors.mu.Lock()
	defer editors.mu.Unlock()
	if _, dup := editors.editors[e.Name()]; dup {
		panic(fmt.Sprintf("editor %s registered twice", e.Name()))
	}
	editors.editors[e.Name()] = e
}

// Get returns the editor registered under name.
func Get(name string) (Editor, bool) {
	editors.mu.RLock()
	defer editors.mu.RUnlock()
	e, ok := editors.editors[name]
	return e, ok
}

// Names returns the registered editor names, sorted.
func Names() []string {
	editors.mu.RLock()
	defer editors.mu.RUnlock()
	names := make([]string, 0, len(editors.editors))
	for name := range editors.editors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// decode decodes raw form values into a typed view.
func decode(raw core.Values, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]any(raw))
}

func init() {
	Register(kernelEditor{})
	Register(stressEditor{})
}
