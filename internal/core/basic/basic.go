// Package basic holds the metadata and scope step of the experiment builder.
package basic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/go-viper/mapstructure/v2"
	"k8s.io/apimachinery/pkg/util/validation"
)

// Mode selects how many of the matched targets are injected.
type Mode string

const (
	ModeOne              Mode = "one"
	ModeAll              Mode = "all"
	ModeFixed            Mode = "fixed"
	ModeFixedPercent     Mode = "fixed-percent"
	ModeRandomMaxPercent Mode = "random-max-percent"
)

// Modes lists the valid modes in display order.
var Modes = []Mode{ModeOne, ModeAll, ModeFixed, ModeFixedPercent, ModeRandomMaxPercent}

var (
	errNoNamespace = errors.New("at least one namespace is required")
	errNoAddress   = errors.New("at least one address is required")
	errBadPair     = errors.New(`expected "key: value" or "key=value"`)
	errBadPod      = errors.New(`expected "namespace:pod"`)
)

// Scope narrows the targets of an experiment.
type Scope struct {
	Namespaces          []string `json:"namespaces" mapstructure:"namespaces"`
	LabelSelectors      []string `json:"label_selectors" mapstructure:"label_selectors"`
	AnnotationSelectors []string `json:"annotation_selectors" mapstructure:"annotation_selectors"`
	PhaseSelectors      []string `json:"phase_selectors" mapstructure:"phase_selectors"`
	Mode                Mode     `json:"mode" mapstructure:"mode"`
	Value               string   `json:"value" mapstructure:"value"`
	Pods                []string `json:"pods" mapstructure:"pods"`
	Addresses           []string `json:"addresses" mapstructure:"addresses"`
}

// Scheduler carries the run length of a one-shot experiment.
type Scheduler struct {
	Duration string `json:"duration" mapstructure:"duration"`
}

// Values are the inputs of the basic step.
type Values struct {
	Name        string    `json:"name" mapstructure:"name"`
	Namespace   string    `json:"namespace" mapstructure:"namespace"`
	Labels      []string  `json:"labels" mapstructure:"labels"`
	Annotations []string  `json:"annotations" mapstructure:"annotations"`
	Scope       Scope     `json:"scope" mapstructure:"scope"`
	Scheduler   Scheduler `json:"scheduler" mapstructure:"scheduler"`
}

// Defaults returns the values of a fresh basic step.
func Defaults() Values {
	return Values{
		Labels:      []string{},
		Annotations: []string{},
		Scope: Scope{
			Namespaces:          []string{},
			LabelSelectors:      []string{},
			AnnotationSelectors: []string{},
			PhaseSelectors:      []string{"all"},
			Mode:                ModeOne,
			Pods:                []string{},
			Addresses:           []string{},
		},
	}
}

// Decode reads values from a loosely typed map, such as a decoded plan
// file. Missing keys keep their defaults.
func Decode(raw map[string]any) (Values, error) {
	v := Defaults()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &v,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Values{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Values{}, fmt.Errorf("failed to decode basic values: %w", err)
	}
	return v, nil
}

// Clone returns a deep copy of the values.
func (v Values) Clone() Values {
	out := v
	out.Labels = clone(v.Labels)
	out.Annotations = clone(v.Annotations)
	out.Scope.Namespaces = clone(v.Scope.Namespaces)
	out.Scope.LabelSelectors = clone(v.Scope.LabelSelectors)
	out.Scope.AnnotationSelectors = clone(v.Scope.AnnotationSelectors)
	out.Scope.PhaseSelectors = clone(v.Scope.PhaseSelectors)
	out.Scope.Pods = clone(v.Scope.Pods)
	out.Scope.Addresses = clone(v.Scope.Addresses)
	return out
}

// Validate checks the values for the given environment.
func (v Values) Validate(env core.Environment) error {
	var errs core.ValidationErrors

	name := strings.TrimSpace(v.Name)
	if name == "" {
		errs.Add("name", nil, core.ErrRequired)
	} else if msgs := validation.IsDNS1123Subdomain(name); len(msgs) > 0 {
		errs.Add("name", name, fmt.Errorf("%w: %s", core.ErrInvalidValue, strings.Join(msgs, "; ")))
	}

	if ns := strings.TrimSpace(v.Namespace); ns != "" {
		if msgs := validation.IsDNS1123Label(ns); len(msgs) > 0 {
			errs.Add("namespace", ns, fmt.Errorf("%w: %s", core.ErrInvalidValue, strings.Join(msgs, "; ")))
		}
	}

	validatePairs(&errs, "labels", v.Labels, true)
	validatePairs(&errs, "annotations", v.Annotations, false)

	switch env {
	case core.EnvCluster:
		if len(nonBlank(v.Scope.Namespaces)) == 0 {
			errs.Add("scope.namespaces", nil, errNoNamespace)
		}
		validatePairs(&errs, "scope.label_selectors", v.Scope.LabelSelectors, true)
		validatePairs(&errs, "scope.annotation_selectors", v.Scope.AnnotationSelectors, false)
		for _, p := range nonBlank(v.Scope.Pods) {
			if _, _, ok := strings.Cut(p, ":"); !ok {
				errs.Add("scope.pods", p, errBadPod)
			}
		}
	case core.EnvPhysical:
		if len(nonBlank(v.Scope.Addresses)) == 0 {
			errs.Add("scope.addresses", nil, errNoAddress)
		}
	}

	validateMode(&errs, v.Scope.Mode, strings.TrimSpace(v.Scope.Value))

	if d := strings.TrimSpace(v.Scheduler.Duration); d != "" {
		if _, err := time.ParseDuration(d); err != nil {
			errs.Add("scheduler.duration", d, fmt.Errorf("%w: %v", core.ErrInvalidValue, err))
		}
	}

	return errs.OrNil()
}

func validateMode(errs *core.ValidationErrors, mode Mode, value string) {
	switch mode {
	case ModeOne, ModeAll:
		return
	case ModeFixed, ModeFixedPercent, ModeRandomMaxPercent:
	default:
		errs.Add("scope.mode", mode, core.ErrInvalidValue)
		return
	}

	if value == "" {
		errs.Add("scope.value", nil, core.ErrRequired)
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || (mode != ModeFixed && n > 100) {
		errs.Add("scope.value", value, core.ErrInvalidValue)
	}
}

func validatePairs(errs *core.ValidationErrors, field string, entries []string, label bool) {
	for _, e := range nonBlank(entries) {
		k, val, ok := splitPair(e)
		if !ok {
			errs.Add(field, e, errBadPair)
			continue
		}
		if msgs := validation.IsQualifiedName(k); len(msgs) > 0 {
			errs.Add(field, e, fmt.Errorf("%w: %s", core.ErrInvalidValue, strings.Join(msgs, "; ")))
			continue
		}
		if label {
			if msgs := validation.IsValidLabelValue(val); len(msgs) > 0 {
				errs.Add(field, e, fmt.Errorf("%w: %s", core.ErrInvalidValue, strings.Join(msgs, "; ")))
			}
		}
	}
}

// Output returns the metadata fragment of the experiment body.
// Values must be valid for env.
func (v Values) Output(env core.Environment) map[string]any {
	scope := map[string]any{
		"mode":  string(v.Scope.Mode),
		"value": strings.TrimSpace(v.Scope.Value),
	}
	switch env {
	case core.EnvCluster:
		scope["namespaces"] = toAny(nonBlank(v.Scope.Namespaces))
		scope["label_selectors"] = pairsToMap(v.Scope.LabelSelectors)
		scope["annotation_selectors"] = pairsToMap(v.Scope.AnnotationSelectors)
		scope["phase_selectors"] = toAny(nonBlank(v.Scope.PhaseSelectors))
		scope["pods"] = podsToMap(v.Scope.Pods)
	case core.EnvPhysical:
		scope["addresses"] = toAny(nonBlank(v.Scope.Addresses))
	}

	return map[string]any{
		"name":        strings.TrimSpace(v.Name),
		"namespace":   strings.TrimSpace(v.Namespace),
		"labels":      pairsToMap(v.Labels),
		"annotations": pairsToMap(v.Annotations),
		"scope":       scope,
		"scheduler":   map[string]any{"duration": strings.TrimSpace(v.Scheduler.Duration)},
	}
}

// splitPair splits at the first ':' or '=', whichever comes first.
func splitPair(s string) (string, string, bool) {
	i := strings.IndexAny(s, ":=")
	if i <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
}

func pairsToMap(entries []string) map[string]any {
	out := make(map[string]any, len(entries))
	for _, e := range nonBlank(entries) {
		if k, v, ok := splitPair(e); ok {
			out[k] = v
		}
	}
	return out
}

func podsToMap(entries []string) map[string]any {
	out := make(map[string]any)
	for _, e := range nonBlank(entries) {
		ns, pod, ok := strings.Cut(e, ":")
		if !ok {
			continue
		}
		ns, pod = strings.TrimSpace(ns), strings.TrimSpace(pod)
		pods, _ := out[ns].([]any)
		out[ns] = append(pods, pod)
	}
	return out
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func clone(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
