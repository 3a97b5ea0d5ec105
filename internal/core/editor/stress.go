package editor

import (
	"errors"
	"fmt"

	"github.com/dagu-org/faultline/internal/core"
)

var errNoStressor = errors.New("configure a cpu or memory stressor, or raw stress-ng stressors")

type stressValues struct {
	CPUWorkers        int      `mapstructure:"cpuWorkers"`
	CPULoad           int      `mapstructure:"cpuLoad"`
	MemoryWorkers     int      `mapstructure:"memoryWorkers"`
	MemorySize        string   `mapstructure:"memorySize"`
	StressngStressors string   `mapstructure:"stressngStressors"`
	ContainerNames    []string `mapstructure:"containerNames"`
}

type stressEditor struct{}

func (stressEditor) Name() string { return "stress" }

func (stressEditor) Defaults() core.Values {
	return core.Values{
		"cpuWorkers":        0,
		"cpuLoad":           0,
		"memoryWorkers":     0,
		"memorySize":        "",
		"stressngStressors": "",
		"containerNames":    []any{},
	}
}

func (stressEditor) Validate(values core.Values) error {
	var v stressValues
	if err := decode(values, &v); err != nil {
		return core.ValidationErrors{{Field: "stressors", Err: fmt.Errorf("%w: %v", core.ErrInvalidValue, err)}}
	}

	var errs core.ValidationErrors
	if v.CPULoad < 0 || v.CPULoad > 100 {
		errs.Add("cpuLoad", v.CPULoad, core.ErrInvalidValue)
	}
	if v.CPUWorkers < 0 {
		errs.Add("cpuWorkers", v.CPUWorkers, core.ErrInvalidValue)
	}
	if v.MemoryWorkers < 0 {
		errs.Add("memoryWorkers", v.MemoryWorkers, core.ErrInvalidValue)
	}

	hasCPU := v.CPUWorkers > 0 || v.CPULoad > 0
	hasMemory := v.MemorySize != "" || v.MemoryWorkers > 0
	if !hasCPU && !hasMemory && v.StressngStressors == "" {
		errs.Add("stressors", nil, errNoStressor)
	}
	return errs.OrNil()
}
