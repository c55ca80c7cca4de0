package memory

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct {
	vector []float32
}

func (f fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vector, nil
}

func (f fixedEmbedder) Dimensions() int { return len(f.vector) }

func TestConfig_Validate(t *testing.T) {
	valid := Config{Address: "localhost:6334", CollectionName: "conversation_memory", VectorSize: 1536}
	assert.NoError(t, valid.Validate())

	t.Run("missing address", func(t *testing.T) {
		cfg := valid
		cfg.Address = ""
		assert.ErrorContains(t, cfg.Validate(), "address is required")
	})

	t.Run("missing collection name", func(t *testing.T) {
		cfg := valid
		cfg.CollectionName = ""
		assert.ErrorContains(t, cfg.Validate(), "collection name is required")
	})

	t.Run("zero vector size", func(t *testing.T) {
		cfg := valid
		cfg.VectorSize = 0
		assert.ErrorContains(t, cfg.Validate(), "vector size")
	})
}

type fakeQdrantClient struct {
	existsErr   error
	exists      bool
	createErr   error
	createCalls int
	upserts     []*pb.UpsertPoints
}

func (f *fakeQdrantClient) CollectionExists(_ context.Context, _ string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.exists, nil
}

func (f *fakeQdrantClient) CreateCollection(_ context.Context, _ *pb.CreateCollection) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.exists = true
	return nil
}

func (f *fakeQdrantClient) Upsert(_ context.Context, req *pb.UpsertPoints) (*pb.UpdateResult, error) {
	f.upserts = append(f.upserts, req)
	return &pb.UpdateResult{}, nil
}

func (f *fakeQdrantClient) Close() error { return nil }

func TestQdrantStore_StoreExchange(t *testing.T) {
	exchange := Exchange{
		ConversationID:   "conv-1",
		UserMessage:      "what is new in melanoma",
		AssistantMessage: "summary text",
	}

	t.Run("upserts two points and creates the collection once", func(t *testing.T) {
		client := &fakeQdrantClient{}
		store := &QdrantStore{
			client:         client,
			embedder:       fixedEmbedder{vector: []float32{0.1, 0.2}},
			collectionName: "conversation_memory",
			vectorSize:     2,
		}

		require.NoError(t, store.StoreExchange(context.Background(), exchange))
		require.NoError(t, store.StoreExchange(context.Background(), exchange))

		assert.Equal(t, 1, client.createCalls)
		require.Len(t, client.upserts, 2)
		assert.Len(t, client.upserts[0].Points, 2)
		require.NotNil(t, client.upserts[0].Wait)
		assert.True(t, *client.upserts[0].Wait)
	})

	t.Run("ensure failure is retried on the next write", func(t *testing.T) {
		client := &fakeQdrantClient{existsErr: errors.New("connection refused")}
		store := &QdrantStore{
			client:         client,
			embedder:       fixedEmbedder{vector: []float32{0.1, 0.2}},
			collectionName: "conversation_memory",
			vectorSize:     2,
		}

		err := store.StoreExchange(context.Background(), exchange)
		require.ErrorContains(t, err, "collection existence")
		assert.Empty(t, client.upserts)

		client.existsErr = nil
		require.NoError(t, store.StoreExchange(context.Background(), exchange))
		assert.Equal(t, 1, client.createCalls)
		assert.Len(t, client.upserts, 1)
	})
}

func TestQdrantStore_BuildPoint(t *testing.T) {
	store := &QdrantStore{
		embedder:       fixedEmbedder{vector: []float32{0.1, 0.2}},
		collectionName: "conversation_memory",
		vectorSize:     2,
	}

	first, err := store.buildPoint(context.Background(), RoleUser, "what is new in melanoma", "conv-1")
	require.NoError(t, err)
	second, err := store.buildPoint(context.Background(), RoleAssistant, "summary text", "conv-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.Id, second.Id, "each point gets a fresh uuid")

	assert.Equal(t, RoleUser, first.Payload["role"].GetStringValue())
	assert.Equal(t, "what is new in melanoma", first.Payload["content"].GetStringValue())
	assert.Equal(t, "conv-1", first.Payload["conversation_id"].GetStringValue())
	assert.Equal(t, RoleAssistant, second.Payload["role"].GetStringValue())
}

func TestParseAddress(t *testing.T) {
	t.Run("host and port", func(t *testing.T) {
		host, port, err := parseAddress("qdrant.internal:6334")
		require.NoError(t, err)
		assert.Equal(t, "qdrant.internal", host)
		assert.Equal(t, 6334, port)
	})

	t.Run("missing port", func(t *testing.T) {
		_, _, err := parseAddress("localhost")
		assert.Error(t, err)
	})

	t.Run("non-numeric port", func(t *testing.T) {
		_, _, err := parseAddress("localhost:grpc")
		assert.Error(t, err)
	})
}
