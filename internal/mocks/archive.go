package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-hub/internal/models"
)

type MessageArchiveMock struct {
	mock.Mock
}

func (m *MessageArchiveMock) SaveMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type StatsSourceMock struct {
	mock.Mock
}

func (m *StatsSourceMock) ServerInfo(ctx context.Context) (models.ServerInfo, error) {
	args := m.Called(ctx)
	var info models.ServerInfo
	if val := args.Get(0); val != nil {
		info = val.(models.ServerInfo)
	}
	return info, args.Error(1)
}

type ArchiveCounterMock struct {
	mock.Mock
}

func (m *ArchiveCounterMock) CountMessages(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
