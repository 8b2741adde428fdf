package txbuilder

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/signer"
)

// MockSigner is a gomock-style mock of signer.Signer, hand-written in the
// shape mockgen would produce (no code-generation step in this pack) so
// tests that only care about *which* derivation paths Send asks the signer
// to sign can assert on call arguments instead of deriving real keys.
type MockSigner struct {
	ctrl     *gomock.Controller
	recorder *MockSignerMockRecorder
}

type MockSignerMockRecorder struct {
	mock *MockSigner
}

func NewMockSigner(ctrl *gomock.Controller) *MockSigner {
	mock := &MockSigner{ctrl: ctrl}
	mock.recorder = &MockSignerMockRecorder{mock}
	return mock
}

func (m *MockSigner) EXPECT() *MockSignerMockRecorder {
	return m.recorder
}

func (m *MockSigner) GenerateAddress(ctx context.Context, accountIndex uint32, internal bool, keyIndex uint32) (iotago.Address, error) {
	ret := m.ctrl.Call(m, "GenerateAddress", ctx, accountIndex, internal, keyIndex)
	addr, _ := ret[0].(iotago.Address)
	err, _ := ret[1].(error)
	return addr, err
}

func (mr *MockSignerMockRecorder) GenerateAddress(ctx, accountIndex, internal, keyIndex interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GenerateAddress", reflect.TypeOf((*MockSigner)(nil).GenerateAddress), ctx, accountIndex, internal, keyIndex)
}

func (m *MockSigner) SignTransaction(ctx context.Context, essenceBytes []byte, inputs []signer.InputSigningData) ([]iotago.UnlockBlock, error) {
	ret := m.ctrl.Call(m, "SignTransaction", ctx, essenceBytes, inputs)
	blocks, _ := ret[0].([]iotago.UnlockBlock)
	err, _ := ret[1].(error)
	return blocks, err
}

func (mr *MockSignerMockRecorder) SignTransaction(ctx, essenceBytes, inputs interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SignTransaction", reflect.TypeOf((*MockSigner)(nil).SignTransaction), ctx, essenceBytes, inputs)
}

func (m *MockSigner) StoreMnemonic(ctx context.Context, mnemonic string) error {
	ret := m.ctrl.Call(m, "StoreMnemonic", ctx, mnemonic)
	err, _ := ret[0].(error)
	return err
}

func (mr *MockSignerMockRecorder) StoreMnemonic(ctx, mnemonic interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StoreMnemonic", reflect.TypeOf((*MockSigner)(nil).StoreMnemonic), ctx, mnemonic)
}

func (m *MockSigner) GetStatus(ctx context.Context) (signer.Status, error) {
	ret := m.ctrl.Call(m, "GetStatus", ctx)
	status, _ := ret[0].(signer.Status)
	err, _ := ret[1].(error)
	return status, err
}

func (mr *MockSignerMockRecorder) GetStatus(ctx interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetStatus", reflect.TypeOf((*MockSigner)(nil).GetStatus), ctx)
}
