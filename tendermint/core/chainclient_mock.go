// Code generated by hand in the shape MockGen produces for ChainClient.
// Source: tendermint/core/types.go (ChainClient)

package core

import (
	reflect "reflect"

	common "github.com/ethereum/go-ethereum/common"
	gomock "go.uber.org/mock/gomock"

	message "github.com/clearmatics/tendercore/tendermint/message"
)

// MockChainClient is a mock of the ChainClient interface, following
// consensus/tendermint/core/backend_mock.go's generated shape: a struct
// wrapping a *gomock.Controller plus a matching recorder type.
type MockChainClient struct {
	ctrl     *gomock.Controller
	recorder *MockChainClientMockRecorder
}

// MockChainClientMockRecorder is the mock recorder for MockChainClient.
type MockChainClientMockRecorder struct {
	mock *MockChainClient
}

// NewMockChainClient creates a new mock instance.
func NewMockChainClient(ctrl *gomock.Controller) *MockChainClient {
	mock := &MockChainClient{ctrl: ctrl}
	mock.recorder = &MockChainClientMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockChainClient) EXPECT() *MockChainClientMockRecorder {
	return m.recorder
}

// BlockHeader mocks base method.
func (m *MockChainClient) BlockHeader(id BlockID) (*message.Header, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "BlockHeader", id)
	ret0, _ := ret[0].(*message.Header)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// BlockHeader indicates an expected call of BlockHeader.
func (mr *MockChainClientMockRecorder) BlockHeader(id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "BlockHeader", reflect.TypeOf((*MockChainClient)(nil).BlockHeader), id)
}

// Block mocks base method.
func (m *MockChainClient) Block(id BlockID) (*message.Block, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Block", id)
	ret0, _ := ret[0].(*message.Block)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// Block indicates an expected call of Block.
func (mr *MockChainClientMockRecorder) Block(id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Block", reflect.TypeOf((*MockChainClient)(nil).Block), id)
}

// ImportBlock mocks base method.
func (m *MockChainClient) ImportBlock(raw []byte) (common.Hash, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ImportBlock", raw)
	ret0, _ := ret[0].(common.Hash)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ImportBlock indicates an expected call of ImportBlock.
func (mr *MockChainClientMockRecorder) ImportBlock(raw interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ImportBlock", reflect.TypeOf((*MockChainClient)(nil).ImportBlock), raw)
}

// ChainInfo mocks base method.
func (m *MockChainClient) ChainInfo() ChainInfo {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ChainInfo")
	ret0, _ := ret[0].(ChainInfo)
	return ret0
}

// ChainInfo indicates an expected call of ChainInfo.
func (mr *MockChainClientMockRecorder) ChainInfo() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ChainInfo", reflect.TypeOf((*MockChainClient)(nil).ChainInfo))
}

// QueueInfo mocks base method.
func (m *MockChainClient) QueueInfo() QueueInfo {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "QueueInfo")
	ret0, _ := ret[0].(QueueInfo)
	return ret0
}

// QueueInfo indicates an expected call of QueueInfo.
func (mr *MockChainClientMockRecorder) QueueInfo() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "QueueInfo", reflect.TypeOf((*MockChainClient)(nil).QueueInfo))
}

// UpdateSealing mocks base method.
func (m *MockChainClient) UpdateSealing(parent common.Hash, allowEmpty bool) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "UpdateSealing", parent, allowEmpty)
}

// UpdateSealing indicates an expected call of UpdateSealing.
func (mr *MockChainClientMockRecorder) UpdateSealing(parent, allowEmpty interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateSealing", reflect.TypeOf((*MockChainClient)(nil).UpdateSealing), parent, allowEmpty)
}
