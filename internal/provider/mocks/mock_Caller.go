// Package mocks provides test doubles for provider callers.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/trueinf/geosight-new-sub000/internal/model"
)

// MockCaller is a mock type for the Caller interface.
type MockCaller struct {
	mock.Mock
}

// Provider provides a mock function with given fields:
func (_m *MockCaller) Provider() model.Provider {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Provider")
	}

	return ret.Get(0).(model.Provider)
}

// Complete provides a mock function with given fields: ctx, prompt
func (_m *MockCaller) Complete(ctx context.Context, prompt string) (string, error) {
	ret := _m.Called(ctx, prompt)

	if len(ret) == 0 {
		panic("no return value specified for Complete")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) (string, error)); ok {
		return rf(ctx, prompt)
	}
	return ret.String(0), ret.Error(1)
}

// NewMockCaller creates a MockCaller for p and registers cleanup assertions.
func NewMockCaller(t interface {
	mock.TestingT
	Cleanup(func())
}, p model.Provider) *MockCaller {
	m := &MockCaller{}
	m.Mock.Test(t)
	m.On("Provider").Return(p).Maybe()
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
