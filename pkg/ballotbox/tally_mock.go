package ballotbox

import (
	"github.com/stretchr/testify/mock"
)

type Mock_TallyStore struct {
	mock.Mock
}

func (m *Mock_TallyStore) Close() error {
	ret := m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (m *Mock_TallyStore) Ping() error {
	ret := m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (m *Mock_TallyStore) EnsureSchema() error {
	ret := m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (m *Mock_TallyStore) Increment(choice string) error {
	ret := m.Called(choice)

	var r0 error
	if rf, ok := ret.Get(0).(func(choice string) error); ok {
		r0 = rf(choice)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (m *Mock_TallyStore) Counts() (map[string]int64, error) {
	ret := m.Called()

	var r0 map[string]int64
	if rf, ok := ret.Get(0).(func() map[string]int64); ok {
		r0 = rf()
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(map[string]int64)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func() error); ok {
		r1 = rf()
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
