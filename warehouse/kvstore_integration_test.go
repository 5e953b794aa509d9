package warehouse

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/natsclient"
	"github.com/c360/etlstreams/pipeline"
)

const testBucket = "etl-warehouse-test"

type KVStoreIntegrationSuite struct {
	suite.Suite
	testClient *natsclient.TestClient
	natsClient *natsclient.Client
	store      *KVStore
	ctx        context.Context
	cancel     context.CancelFunc
}

func (s *KVStoreIntegrationSuite) SetupSuite() {
	s.testClient = natsclient.NewTestClient(s.T(),
		natsclient.WithJetStream(),
		natsclient.WithKV())
	s.natsClient = s.testClient.Client
}

func (s *KVStoreIntegrationSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Second)

	var err error
	s.store, err = NewKVStore(s.ctx, s.natsClient, testBucket, nil)
	s.Require().NoError(err)
}

func (s *KVStoreIntegrationSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
	s.cancel()
}

// getRaw reads a key straight from the bucket, bypassing the store.
func (s *KVStoreIntegrationSuite) getRaw(key string) pipeline.Record {
	bucket, err := s.natsClient.GetKeyValueBucket(s.ctx, testBucket)
	s.Require().NoError(err)

	entry, err := bucket.Get(s.ctx, key)
	s.Require().NoError(err)

	var record pipeline.Record
	s.Require().NoError(json.Unmarshal(entry.Value(), &record))
	return record
}

// TestLoadRecordAndReadBack loads a record and verifies the KV entry
func (s *KVStoreIntegrationSuite) TestLoadRecordAndReadBack() {
	record := pipeline.Record{
		"id":       "order-1042",
		"amount":   19.99,
		"currency": "EUR",
	}

	err := s.store.LoadRecord(s.ctx, record)
	s.Require().NoError(err)

	stored := s.getRaw("order-1042")
	s.Equal("order-1042", stored.ID())
	s.Equal(19.99, stored["amount"])
	s.Equal("EUR", stored["currency"])

	stats := s.store.Stats()
	s.Equal(int64(1), stats.RecordsLoaded)
	s.Equal(int64(0), stats.LoadErrors)
	s.Equal("order-1042", stats.LastKey)
	s.NotZero(stats.LastLoadTime)
}

// TestKeySanitization verifies ids outside the KV alphabet map onto it
func (s *KVStoreIntegrationSuite) TestKeySanitization() {
	record := pipeline.Record{"id": "order 1042!draft", "status": "pending"}

	err := s.store.LoadRecord(s.ctx, record)
	s.Require().NoError(err)
	s.Equal("order_1042_draft", s.store.Stats().LastKey)

	stored := s.getRaw("order_1042_draft")
	s.Equal("pending", stored["status"])
}

// TestGeneratedKeyForMissingID verifies records without ids still load
func (s *KVStoreIntegrationSuite) TestGeneratedKeyForMissingID() {
	record := pipeline.Record{"amount": 5.0}

	err := s.store.LoadRecord(s.ctx, record)
	s.Require().NoError(err)

	key := s.store.Stats().LastKey
	_, err = uuid.Parse(key)
	s.Require().NoError(err, "fallback key should be a UUID")

	stored := s.getRaw(key)
	s.Equal(5.0, stored["amount"])
}

// TestLoadBatch verifies per-record isolation within a batch
func (s *KVStoreIntegrationSuite) TestLoadBatch() {
	batch := []pipeline.Record{
		{"id": "batch-1", "n": 1.0},
		nil,
		{"id": "batch-2", "n": 2.0},
		{"id": "batch-3", "n": 3.0},
	}

	loaded, err := s.store.LoadBatch(s.ctx, batch)
	s.Error(err, "nil record in batch should surface in joined error")
	s.Equal(3, loaded)

	stats := s.store.Stats()
	s.Equal(int64(3), stats.RecordsLoaded)
	s.Equal(int64(1), stats.LoadErrors)

	stored := s.getRaw("batch-3")
	s.Equal(3.0, stored["n"])
}

// TestRecordAsOf verifies revision history resolution at a timestamp
func (s *KVStoreIntegrationSuite) TestRecordAsOf() {
	record := pipeline.Record{"id": "price-asof", "price": 10.0}
	s.Require().NoError(s.store.LoadRecord(s.ctx, record))

	time.Sleep(50 * time.Millisecond)
	record["price"] = 20.0
	s.Require().NoError(s.store.LoadRecord(s.ctx, record))
	afterSecond := time.Now()

	time.Sleep(50 * time.Millisecond)
	record["price"] = 30.0
	s.Require().NoError(s.store.LoadRecord(s.ctx, record))

	// As of just after the second revision
	got, err := s.store.RecordAsOf(s.ctx, "price-asof", afterSecond)
	s.Require().NoError(err)
	s.Equal(20.0, got["price"])

	// As of the future resolves the newest revision
	got, err = s.store.RecordAsOf(s.ctx, "price-asof", time.Now().Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(30.0, got["price"])
}

// TestRecordAsOfNotFound verifies unknown ids classify as invalid
func (s *KVStoreIntegrationSuite) TestRecordAsOfNotFound() {
	_, err := s.store.RecordAsOf(s.ctx, "never-loaded", time.Now())
	s.Require().Error(err)
	s.True(errors.IsInvalid(err))

	_, err = s.store.RecordAsOf(s.ctx, "", time.Now())
	s.Require().Error(err)
	s.True(errors.IsInvalid(err))
}

// TestEmptyRecordRejected verifies empty records never reach KV
func (s *KVStoreIntegrationSuite) TestEmptyRecordRejected() {
	err := s.store.LoadRecord(s.ctx, nil)
	s.Require().Error(err)
	s.True(errors.IsInvalid(err))

	err = s.store.LoadRecord(s.ctx, pipeline.Record{})
	s.Require().Error(err)
	s.True(errors.IsInvalid(err))

	stats := s.store.Stats()
	s.Equal(int64(0), stats.RecordsLoaded)
	s.Equal(int64(2), stats.LoadErrors)
}

func TestKVStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(KVStoreIntegrationSuite))
}
