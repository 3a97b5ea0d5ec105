package editor

import (
	"errors"
	"fmt"

	"github.com/dagu-org/faultline/internal/core"
)

// Fail types understood by the kernel fault injector.
const (
	failTypeSlab = iota
	failTypePage
	failTypeBIO
)

var errCallchainEmpty = errors.New("callchain needs at least one frame")

type kernelFrame struct {
	Funcname   string `mapstructure:"funcname"`
	Parameters string `mapstructure:"parameters"`
	Predicate  string `mapstructure:"predicate"`
}

type kernelRequest struct {
	Callchain   []kernelFrame `mapstructure:"callchain"`
	Failtype    int           `mapstructure:"failtype"`
	Headers     []string      `mapstructure:"headers"`
	Probability int           `mapstructure:"probability"`
	Times       int           `mapstructure:"times"`
}

type kernelValues struct {
	FailKernRequest kernelRequest `mapstructure:"failKernRequest"`
}

type kernelEditor struct{}

func (kernelEditor) Name() string { return "kernel" }

func (kernelEditor) Defaults() core.Values {
	return core.Values{
		"failKernRequest": map[string]any{
			"callchain":   []any{},
			"failtype":    failTypeSlab,
			"headers":     []any{},
			"probability": 0,
			"times":       0,
		},
	}
}

func (kernelEditor) Validate(values core.Values) error {
	var v kernelValues
	if err := decode(values, &v); err != nil {
		return core.ValidationErrors{{Field: "failKernRequest", Err: fmt.Errorf("%w: %v", core.ErrInvalidValue, err)}}
	}

	var errs core.ValidationErrors
	req := v.FailKernRequest
	if len(req.Callchain) == 0 {
		errs.Add("failKernRequest.callchain", nil, errCallchainEmpty)
	}
	for i, frame := range req.Callchain {
		if frame.Funcname == "" {
			errs.Add(fmt.Sprintf("failKernRequest.callchain[%d].funcname", i), nil, core.ErrRequired)
		}
	}
	if req.Failtype < failTypeSlab || req.Failtype > failTypeBIO {
		errs.Add("failKernRequest.failtype", req.Failtype, core.ErrInvalidValue)
	}
	if req.Probability < 0 || req.Probability > 100 {
		errs.Add("failKernRequest.probability", req.Probability, core.ErrInvalidValue)
	}
	if req.Times < 0 {
		errs.Add("failKernRequest.times", req.Times, core.ErrInvalidValue)
	}
	return errs.OrNil()
}
