// Package sessionmock holds hand-written go.uber.org/mock-style mocks for
// pkg/session's transport contracts, in the shape mockgen would generate for
// them: session.Connection and session.Connections, the two interfaces
// anything driving a Session actually depends on.
package sessionmock

import (
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/hwlsniper/copycat/pkg/session"
)

// MockConnection is a mock of the session.Connection interface.
type MockConnection struct {
	ctrl     *gomock.Controller
	recorder *MockConnectionMockRecorder
}

// MockConnectionMockRecorder is the recorder for MockConnection's EXPECT() calls.
type MockConnectionMockRecorder struct {
	mock *MockConnection
}

// NewMockConnection creates a new mock for session.Connection.
func NewMockConnection(ctrl *gomock.Controller) *MockConnection {
	m := &MockConnection{ctrl: ctrl}
	m.recorder = &MockConnectionMockRecorder{mock: m}
	return m
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockConnection) EXPECT() *MockConnectionMockRecorder {
	return m.recorder
}

// Send mocks session.Connection.Send.
func (m *MockConnection) Send(req *session.PublishRequest) (*session.PublishResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Send", req)
	resp, _ := ret[0].(*session.PublishResponse)
	err, _ := ret[1].(error)
	return resp, err
}

// Send indicates an expected call of Send.
func (mr *MockConnectionMockRecorder) Send(req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Send", reflect.TypeOf((*MockConnection)(nil).Send), req)
}

// Handler mocks session.Connection.Handler.
func (m *MockConnection) Handler(kind string, fn func(*session.PublishRequest) (*session.PublishResponse, error)) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Handler", kind, fn)
}

// Handler indicates an expected call of Handler.
func (mr *MockConnectionMockRecorder) Handler(kind, fn any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Handler", reflect.TypeOf((*MockConnection)(nil).Handler), kind, fn)
}

// MockConnections is a mock of the session.Connections interface.
type MockConnections struct {
	ctrl     *gomock.Controller
	recorder *MockConnectionsMockRecorder
}

// MockConnectionsMockRecorder is the recorder for MockConnections's EXPECT() calls.
type MockConnectionsMockRecorder struct {
	mock *MockConnections
}

// NewMockConnections creates a new mock for session.Connections.
func NewMockConnections(ctrl *gomock.Controller) *MockConnections {
	m := &MockConnections{ctrl: ctrl}
	m.recorder = &MockConnectionsMockRecorder{mock: m}
	return m
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockConnections) EXPECT() *MockConnectionsMockRecorder {
	return m.recorder
}

// GetConnection mocks session.Connections.GetConnection.
func (m *MockConnections) GetConnection(addr session.Address) (session.Connection, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetConnection", addr)
	conn, _ := ret[0].(session.Connection)
	err, _ := ret[1].(error)
	return conn, err
}

// GetConnection indicates an expected call of GetConnection.
func (mr *MockConnectionsMockRecorder) GetConnection(addr any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetConnection", reflect.TypeOf((*MockConnections)(nil).GetConnection), addr)
}
