package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Send(ctx context.Context, job *printing.Job) error {
	return m.Called(ctx, job).Error(0)
}

type failingArchive struct{}

func (failingArchive) Upload(context.Context, string, []byte, string) error {
	return errors.New("bucket unreachable")
}

func archivedJob() *printing.Job {
	job := testJob("soup")
	job.TenantID = uuid.MustParse("7f1c9a1e-3b7a-4a57-9a55-3c8f0e0b2d11")
	job.CreatedAt = time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("WET", -3600))
	return job
}

func TestArchiveKey(t *testing.T) {
	job := archivedJob()
	assert.Equal(t,
		"tickets/7f1c9a1e-3b7a-4a57-9a55-3c8f0e0b2d11/2024/03/02/"+job.ID.String()+".txt",
		ArchiveKey(job), "dated in UTC")
}

func TestArchiveSink_StoresSentTicket(t *testing.T) {
	next := new(MockSink)
	store := storage.NewMemoryObjectStorage()
	sink := NewArchiveSink(next, store, NewTicketRenderer(32), zap.NewNop())
	job := archivedJob()

	next.On("Send", mock.Anything, job).Return(nil)
	require.NoError(t, sink.Send(context.Background(), job))

	obj, ok := store.Get(ArchiveKey(job))
	require.True(t, ok)
	assert.Contains(t, string(obj.Data), "2x Soup")
	assert.Equal(t, "text/plain; charset=utf-8", obj.ContentType)
	next.AssertExpectations(t)
}

func TestArchiveSink_SendFailureSkipsArchive(t *testing.T) {
	next := new(MockSink)
	store := storage.NewMemoryObjectStorage()
	sink := NewArchiveSink(next, store, NewTicketRenderer(32), zap.NewNop())

	next.On("Send", mock.Anything, mock.Anything).Return(errors.New("paper out"))
	err := sink.Send(context.Background(), archivedJob())
	assert.ErrorContains(t, err, "paper out")
	assert.Empty(t, store.Keys())
}

func TestArchiveSink_ArchiveFailureIsLogged(t *testing.T) {
	next := new(MockSink)
	core, logs := observer.New(zap.WarnLevel)
	sink := NewArchiveSink(next, failingArchive{}, NewTicketRenderer(32), zap.New(core))

	next.On("Send", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, sink.Send(context.Background(), archivedJob()))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ticket archive failed", logs.All()[0].Message)
}
