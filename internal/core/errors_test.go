package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorList_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		errList  ErrorList
		expected string
	}{
		{
			name:     "empty list returns empty string",
			errList:  ErrorList{},
			expected: "",
		},
		{
			name:     "single error returns error message",
			errList:  ErrorList{errors.New("first error")},
			expected: "first error",
		},
		{
			name:     "multiple errors joined with semicolon",
			errList:  ErrorList{errors.New("first"), errors.New("second"), errors.New("third")},
			expected: "first; second; third",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.errList.Error())
		})
	}
}

func TestErrorList_Unwrap(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ErrorList{}.Unwrap())

	list := ErrorList{ErrRequired, fmt.Errorf("wrapped: %w", ErrUnknownKind)}
	assert.ErrorIs(t, list, ErrRequired)
	assert.ErrorIs(t, list, ErrUnknownKind)
	assert.Equal(t, []string{"value is required", "wrapped: unknown kind"}, list.ToStringList())
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	t.Run("WithoutValue", func(t *testing.T) {
		t.Parallel()
		err := NewValidationError("name", nil, ErrRequired)
		assert.Equal(t, "field 'name': value is required", err.Error())
	})

	t.Run("WithValue", func(t *testing.T) {
		t.Parallel()
		err := NewValidationError("scope.mode", "sometimes", ErrInvalidValue)
		assert.Equal(t, "field 'scope.mode': invalid value (value: sometimes)", err.Error())
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()

	var errs ValidationErrors
	require.NoError(t, errs.OrNil())

	errs.Add("name", nil, ErrRequired)
	errs.Add("scope.namespaces", []string{}, ErrRequired)

	err := errs.OrNil()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequired)
	assert.Equal(t, []string{"name", "scope.namespaces"}, errs.Fields())
	require.NotNil(t, errs.ByField("scope.namespaces"))
	assert.Nil(t, errs.ByField("labels"))

	var target ValidationErrors
	require.True(t, errors.As(fmt.Errorf("commit: %w", err), &target))
	assert.Len(t, target, 2)
}

func TestTypedErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")

	conflict := &ConflictError{Resource: "node", Name: "host-1"}
	assert.Equal(t, `node "host-1" already exists`, conflict.Error())

	notFound := &NotFoundError{Resource: "node", Name: "host-2", Err: cause}
	assert.Equal(t, `node "host-2" not found: boom`, notFound.Error())
	assert.ErrorIs(t, notFound, cause)

	netErr := &NetworkError{Op: "list nodes", StatusCode: 502, Body: "bad gateway"}
	assert.Equal(t, "list nodes: unexpected status 502: bad gateway", netErr.Error())

	progErr := &ProgrammingError{Err: ErrUnknownKind}
	assert.ErrorIs(t, progErr, ErrUnknownKind)
}

func TestIsUserFacing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "Nil", err: nil, expected: false},
		{name: "FieldError", err: NewValidationError("name", nil, ErrRequired), expected: false},
		{name: "FieldErrorList", err: ValidationErrors{{Field: "name", Err: ErrRequired}}, expected: false},
		{name: "Conflict", err: &ConflictError{Resource: "node", Name: "a"}, expected: true},
		{name: "Network", err: &NetworkError{Op: "submit"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsUserFacing(tt.err))
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected Environment
		wantErr  bool
	}{
		{input: "cluster", expected: EnvCluster},
		{input: " Physical ", expected: EnvPhysical},
		{input: "k8s", expected: EnvCluster},
		{input: "physic", expected: EnvPhysical},
		{input: "cloud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			env, err := ParseEnvironment(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidEnvironment)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, env)
		})
	}
}

func TestValues_Clone(t *testing.T) {
	t.Parallel()

	orig := Values{"latency": "10ms"}
	clone := orig.Clone()
	clone["jitter"] = "1ms"

	assert.NotContains(t, orig, "jitter")
	assert.Equal(t, Values{}, Values(nil).Clone())
}
