// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"slices"
	"sync"
)

type (
	// MockNative is a Native that records every call. Configure the exported
	// fields before handing it to a Bridge; read the recording through the
	// accessor methods. It is safe for concurrent use.
	MockNative struct {
		// SetEnvStatus is returned from every SetEnv call.
		SetEnvStatus int
		// InitStatus is returned from InitRuntime.
		InitStatus int
		// ExecCode is returned from ExecEntryPoint when ExecFunc is nil.
		ExecCode int
		// ExecFunc, when set, runs in place of returning ExecCode.
		ExecFunc func(entryPoint string, args []string) int

		mu    sync.Mutex
		calls []string
		env   map[string]string
		init  InitCall
		exec  ExecCall
	}

	// InitCall captures the arguments of InitRuntime.
	InitCall struct {
		FilesRoot        string
		EntryPoint       string
		UTCOffsetSeconds int
	}

	// ExecCall captures the arguments of ExecEntryPoint.
	ExecCall struct {
		EntryPoint string
		Args       []string
	}
)

// Call names recorded by MockNative.
const (
	CallSetEnv  = "setEnv"
	CallInit    = "initRuntime"
	CallExec    = "execEntryPoint"
	CallRelease = "freeNativeResources"
)

// SetEnv records the variable and returns SetEnvStatus.
func (m *MockNative) SetEnv(name, value string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CallSetEnv)
	if m.env == nil {
		m.env = make(map[string]string)
	}
	m.env[name] = value
	return m.SetEnvStatus
}

// InitRuntime records its arguments and returns InitStatus.
func (m *MockNative) InitRuntime(filesRoot, entryPoint string, utcOffsetSeconds int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CallInit)
	m.init = InitCall{FilesRoot: filesRoot, EntryPoint: entryPoint, UTCOffsetSeconds: utcOffsetSeconds}
	return m.InitStatus
}

// ExecEntryPoint records its arguments and returns ExecCode, or the result of
// ExecFunc when set. ExecFunc runs without the lock held.
func (m *MockNative) ExecEntryPoint(entryPoint string, args []string) int {
	m.mu.Lock()
	m.calls = append(m.calls, CallExec)
	m.exec = ExecCall{EntryPoint: entryPoint, Args: slices.Clone(args)}
	fn, code := m.ExecFunc, m.ExecCode
	m.mu.Unlock()

	if fn != nil {
		return fn(entryPoint, args)
	}
	return code
}

// FreeNativeResources counts the release.
func (m *MockNative) FreeNativeResources() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CallRelease)
}

// Calls returns the names of the calls received, in order.
func (m *MockNative) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Count returns how many times the named call was received.
func (m *MockNative) Count(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

// Env returns the value recorded by SetEnv for name.
func (m *MockNative) Env(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.env[name]
	return v, ok
}

// Init returns the arguments of the last InitRuntime call.
func (m *MockNative) Init() InitCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.init
}

// Exec returns the arguments of the last ExecEntryPoint call.
func (m *MockNative) Exec() ExecCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exec
}
