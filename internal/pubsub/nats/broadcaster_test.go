package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"
	"walletpnl/internal/aggregate"
	"walletpnl/internal/config"
	"walletpnl/internal/pubsub"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/nevasik7/alerting/logger"
)

// MockLogger implements logger.Logger for tests
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Debugf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Info(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Warn(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Warnf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Error(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Fatal(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Fatalf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Panic(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Panicf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	m.Called(key, value)
	return m
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	m.Called(fields)
	return m
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.Called(format, args)
}

// ------------------------ tests not real connection ------------------------
func TestNew_NilConfig(t *testing.T) {
	mockLogger := new(MockLogger)

	client, err := New(mockLogger, nil)

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Equal(t, "config is required", err.Error())
	mockLogger.AssertNotCalled(t, "Infof", mock.Anything, mock.Anything)
}

func TestNew_EmptyURL(t *testing.T) {
	mockLogger := new(MockLogger)

	client, err := New(mockLogger, &config.NATSConfig{URL: ""})

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Equal(t, "nats url is required", err.Error())
	mockLogger.AssertNotCalled(t, "Infof", mock.Anything, mock.Anything)
}

func TestReady_NilConnection(t *testing.T) {
	mockLogger := new(MockLogger)

	client := &Client{
		nc:  nil,
		log: mockLogger,
	}

	assert.False(t, client.Ready())
}

func TestStatus_NilConnection(t *testing.T) {
	mockLogger := new(MockLogger)
	client := &Client{
		nc:  nil,
		log: mockLogger,
	}

	// execute and verify
	assert.Equal(t, nats.DISCONNECTED, client.Status())
}

func TestClose_NilConnection(t *testing.T) {
	mockLogger := new(MockLogger)
	client := &Client{
		nc:  nil,
		log: mockLogger,
	}

	err := client.Close()

	assert.NoError(t, err)
	mockLogger.AssertNotCalled(t, "Errorf", mock.Anything, mock.Anything)
	mockLogger.AssertNotCalled(t, "Infof", mock.Anything, mock.Anything)
}

// ------------------------ tests not real connection ------------------------

// ------------------------ tests in-memory nats connection ------------------------
func runTestWithInMemoryNATS(t *testing.T, testFunc func(*testing.T, *server.Server, string)) {
	t.Helper()

	// run in-memory NATS server
	opts := natsserver.DefaultTestOptions
	opts.Port = -1 // random port
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	// give server time running
	time.Sleep(100 * time.Millisecond)

	// run test func with server and his URL
	testFunc(t, s, s.ClientURL())
}

func TestNew_Success(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})

		require.NoError(t, err)
		require.NotNil(t, client)
		assert.True(t, client.Ready())
		assert.Equal(t, nats.CONNECTED, client.Status())

		mockLogger.AssertExpectations(t)

		// cleanup not use client.Close() because that avoid the unexpected call Infof
		if client != nil && client.nc != nil {
			client.nc.Close()
		}
	})
}

func TestNew_WithSubjectPrefix(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url, SubjectPrefix: "summary.test"})

		require.NoError(t, err)
		require.NotNil(t, client)
		assert.True(t, client.Ready())

		mockLogger.AssertExpectations(t)

		if client != nil && client.nc != nil {
			client.nc.Close()
		}
	})
}

func TestClose_Success(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()
		mockLogger.On("Infof", "NATS connection closed gracefully", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		err = client.Close()
		assert.NoError(t, err)

		// check what conn real close
		assert.False(t, client.Ready())
		assert.Equal(t, nats.CLOSED, client.Status())

		mockLogger.AssertExpectations(t)
	})
}

func TestReady_States(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		// check what conn ready
		assert.True(t, client.Ready())
		assert.Equal(t, nats.CONNECTED, client.Status())

		client.nc.Close()
		assert.False(t, client.Ready())
		assert.Equal(t, nats.CLOSED, client.Status())

		mockLogger.AssertExpectations(t)
	})
}

func TestStatus_VariousStates(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		assert.Equal(t, nats.CONNECTED, client.Status())

		client.nc.Close()
		assert.Equal(t, nats.CLOSED, client.Status())

		mockLogger.AssertExpectations(t)
	})
}

func TestClose_Idempotent(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()
		mockLogger.On("Infof", "NATS connection closed gracefully", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		err = client.Close()
		assert.NoError(t, err)

		err = client.Close()
		assert.NoError(t, err)

		err = client.Close()
		assert.NoError(t, err)

		mockLogger.AssertNumberOfCalls(t, "Infof", 2) // connect + close
	})
}

func TestReconnectBehavior(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		assert.True(t, client.Ready())

		client.nc.Close()
		mockLogger.AssertExpectations(t)
	})
}

func TestPublish_NilConnection(t *testing.T) {
	client := &Client{nc: nil, log: new(MockLogger)}

	err := client.Publish(context.Background(), "walletpnl.summary.x", map[string]string{"k": "v"})
	assert.ErrorContains(t, err, "not initialized")
	assert.Error(t, client.Health(context.Background()))
}

func TestPublish_DeliversJSON(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)
		defer client.nc.Close()

		sub, err := nats.Connect(url)
		require.NoError(t, err)
		defer sub.Close()

		subject := pubsub.SummarySubject("walletpnl.summary", "Wallet111")
		msgs := make(chan *nats.Msg, 1)
		_, err = sub.ChanSubscribe("walletpnl.summary.*", msgs)
		require.NoError(t, err)
		require.NoError(t, sub.Flush())

		ev := pubsub.WalletSummaryEvent{
			ID:          "ev-1",
			Address:     "Wallet111",
			GeneratedAt: time.Unix(1700000000, 0).UTC(),
			Summary:     &aggregate.GlobalSummary{Overview: aggregate.Overview{TotalTrades: 3, WinRate: "33.33%"}},
		}
		require.NoError(t, client.Publish(context.Background(), subject, ev))

		select {
		case msg := <-msgs:
			assert.Equal(t, "walletpnl.summary.Wallet111", msg.Subject)

			var got pubsub.WalletSummaryEvent
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.Equal(t, ev, got)
		case <-time.After(2 * time.Second):
			t.Fatal("summary event was not delivered")
		}
	})
}

func TestPublish_CanceledContext(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)
		defer client.nc.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, client.Publish(ctx, "x", 1), context.Canceled)
	})
}

func TestHealth(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "Connected to NATS successfully, url=%s", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		// no deadline on the caller side
		assert.NoError(t, client.Health(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, client.Health(ctx))

		client.nc.Close()
		assert.ErrorContains(t, client.Health(context.Background()), "not connected")
	})
}

// ------------------------ tests in-memory nats connection ------------------------
