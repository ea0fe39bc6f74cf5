package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHeartbeat_EdgeTriggered(t *testing.T) {
	gw := &mockGateway{}
	sink := &recordingSink{}
	hb := NewHeartbeat(gw, sink, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, domain.ConnUnknown, hb.State())

	gw.On("GetAccount", mock.Anything).Return(&domain.AccountSnapshot{Balance: 1000}, nil).Once()
	hb.Beat(ctx)
	assert.Equal(t, 1, sink.count(domain.EventConnectionRestored))

	gw.On("GetAccount", mock.Anything).Return(nil, errors.New("dial tcp: refused")).Twice()
	hb.Beat(ctx)
	hb.Beat(ctx)

	assert.Equal(t, 1, sink.count(domain.EventConnectionLost), "two failures must notify once")
	assert.False(t, hb.Connected())
	assert.Error(t, hb.LastError())

	gw.On("GetAccount", mock.Anything).Return(&domain.AccountSnapshot{Balance: 1500, Equity: 1510}, nil)
	hb.Beat(ctx)
	hb.Beat(ctx)

	assert.Equal(t, 2, sink.count(domain.EventConnectionRestored))
	assert.Equal(t, "Connection to gateway restored", sink.events[len(sink.events)-1].Message)
	assert.True(t, hb.Connected())
	assert.Equal(t, 1500.0, hb.Account().Balance)
	assert.False(t, hb.Account().UpdatedAt.IsZero())
	assert.NoError(t, hb.LastError())
}

func TestHeartbeat_KeepsLastSnapshotWhileDown(t *testing.T) {
	gw := &mockGateway{}
	hb := NewHeartbeat(gw, nil, zap.NewNop())
	ctx := context.Background()

	gw.On("GetAccount", mock.Anything).Return(&domain.AccountSnapshot{Balance: 900}, nil).Once()
	assert.Equal(t, domain.ConnConnected, hb.Beat(ctx))

	gw.On("GetAccount", mock.Anything).Return(nil, errors.New("timeout")).Once()
	assert.Equal(t, domain.ConnDisconnected, hb.Beat(ctx))
	assert.Equal(t, 900.0, hb.Account().Balance)
}

func TestHeartbeat_NoLossBeforeFirstConnection(t *testing.T) {
	gw := &mockGateway{}
	sink := &recordingSink{}
	hb := NewHeartbeat(gw, sink, zap.NewNop())
	ctx := context.Background()

	gw.On("GetAccount", mock.Anything).Return(nil, errors.New("dial tcp: refused")).Twice()
	assert.Equal(t, domain.ConnDisconnected, hb.Beat(ctx))
	hb.Beat(ctx)
	assert.Zero(t, sink.count(domain.EventConnectionLost))
	assert.Error(t, hb.LastError())

	gw.On("GetAccount", mock.Anything).Return(&domain.AccountSnapshot{Balance: 1000}, nil)
	assert.Equal(t, domain.ConnConnected, hb.Beat(ctx))
	require.Len(t, sink.events, 1)
	assert.Equal(t, domain.EventConnectionRestored, sink.events[0].Kind)
	assert.Equal(t, "Connection to gateway established", sink.events[0].Message)
}
