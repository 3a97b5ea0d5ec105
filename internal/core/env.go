package core

import (
	"fmt"
	"strings"
)

// Environment selects the kind of target an experiment is injected into.
type Environment string

const (
	// EnvCluster targets workloads managed by a cluster.
	EnvCluster Environment = "cluster"
	// EnvPhysical targets hosts registered in the node registry.
	EnvPhysical Environment = "physical"
)

// Environments lists every supported environment in display order.
var Environments = []Environment{EnvCluster, EnvPhysical}

// legacyEnvAliases maps the tokens used by the original dashboard.
var legacyEnvAliases = map[string]Environment{
	"k8s":    EnvCluster,
	"physic": EnvPhysical,
}

// ParseEnvironment converts user input into an Environment.
func ParseEnvironment(s string) (Environment, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch Environment(v) {
	case EnvCluster, EnvPhysical:
		return Environment(v), nil
	}
	if env, ok := legacyEnvAliases[v]; ok {
		return env, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEnvironment, s)
}

func (e Environment) String() string {
	return string(e)
}

// Kind names a category of injectable fault, e.g. "NetworkFault".
type Kind string

func (k Kind) String() string {
	return string(k)
}

// Values is a flat bag of form values keyed by field name.
type Values map[string]any

// Clone returns a shallow copy of the values.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
