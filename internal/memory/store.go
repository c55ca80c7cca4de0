// Package memory persists conversation exchanges as embedding vectors in
// Qdrant so that past research questions and summaries can be recalled by
// semantic similarity.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/pharmalens/research-assistant/internal/llm"
)

// Message roles stored in point payloads.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config holds the configuration for connecting to a Qdrant instance.
type Config struct {
	// Address is the host:port of the Qdrant gRPC endpoint (e.g. "localhost:6334").
	Address string
	// CollectionName is the Qdrant collection to use (e.g. "conversation_memory").
	CollectionName string
	// VectorSize is the dimensionality of the embedding vectors.
	VectorSize uint64
}

// Validate checks that all required Config fields are set.
func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("memory config: address is required")
	}
	if c.CollectionName == "" {
		return fmt.Errorf("memory config: collection name is required")
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("memory config: vector size must be > 0")
	}
	return nil
}

// Exchange is one question/answer pair from a conversation.
type Exchange struct {
	// ConversationID groups the exchange with the rest of its conversation.
	ConversationID string
	// UserMessage is the research question as the user phrased it.
	UserMessage string
	// AssistantMessage is the generated summary returned to the user.
	AssistantMessage string
}

// Store defines the interface for conversation memory persistence.
type Store interface {
	// StoreExchange embeds and upserts both sides of an exchange.
	StoreExchange(ctx context.Context, exchange Exchange) error
	// Close releases the underlying connection.
	Close() error
}

// Compile-time check that QdrantStore implements Store.
var _ Store = (*QdrantStore)(nil)

// qdrantAPI is the subset of the Qdrant client used by the store.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, req *pb.CreateCollection) error
	Upsert(ctx context.Context, req *pb.UpsertPoints) (*pb.UpdateResult, error)
	Close() error
}

// QdrantStore persists exchanges in a Qdrant collection. Each exchange
// becomes two points, one per role, carrying the message text and
// conversation ID as payload. The collection is created lazily on first
// write so that the service starts even when Qdrant is still coming up.
type QdrantStore struct {
	client         qdrantAPI
	embedder       llm.Embedder
	collectionName string
	vectorSize     uint64

	ensureMu sync.Mutex
	ensured  bool
}

// NewQdrantStore creates a Qdrant-backed store by dialing the configured
// gRPC address. The connection uses insecure credentials, suitable for
// internal network deployments.
func NewQdrantStore(cfg Config, embedder llm.Embedder) (*QdrantStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host, port, err := parseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("memory: invalid address %q: %w", cfg.Address, err)
	}

	qdrantClient, err := pb.NewClient(&pb.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: failed to create qdrant client: %w", err)
	}

	return &QdrantStore{
		client:         qdrantClient,
		embedder:       embedder,
		collectionName: cfg.CollectionName,
		vectorSize:     cfg.VectorSize,
	}, nil
}

// StoreExchange embeds the user question and assistant summary and
// upserts them as two separate points keyed by fresh UUIDs.
func (s *QdrantStore) StoreExchange(ctx context.Context, exchange Exchange) error {
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	points := make([]*pb.PointStruct, 0, 2)

	userPoint, err := s.buildPoint(ctx, RoleUser, exchange.UserMessage, exchange.ConversationID)
	if err != nil {
		return err
	}
	points = append(points, userPoint)

	assistantPoint, err := s.buildPoint(ctx, RoleAssistant, exchange.AssistantMessage, exchange.ConversationID)
	if err != nil {
		return err
	}
	points = append(points, assistantPoint)

	wait := true
	_, err = s.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collectionName,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("memory: failed to upsert exchange for conversation %s: %w", exchange.ConversationID, err)
	}

	return nil
}

// buildPoint embeds one message and wraps it in a point struct with the
// role, content, and conversation ID payload.
func (s *QdrantStore) buildPoint(ctx context.Context, role, content, conversationID string) (*pb.PointStruct, error) {
	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("memory: failed to embed %s message: %w", role, err)
	}

	return &pb.PointStruct{
		Id:      pb.NewIDUUID(uuid.New().String()),
		Vectors: pb.NewVectors(vector...),
		Payload: map[string]*pb.Value{
			"role":            pb.NewValueString(role),
			"content":         pb.NewValueString(content),
			"conversation_id": pb.NewValueString(conversationID),
		},
	}, nil
}

// ensureCollection creates the collection with cosine distance on first
// use. Success is remembered so later writes skip the check; a failure
// is retried on the next write, so a Qdrant that was down at startup
// resumes accepting writes once it recovers.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()

	if s.ensured {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("memory: failed to check collection existence: %w", err)
	}

	if !exists {
		err = s.client.CreateCollection(ctx, &pb.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
				Size:     s.vectorSize,
				Distance: pb.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("memory: failed to create collection %q: %w", s.collectionName, err)
		}
	}

	s.ensured = true
	return nil
}

// Close releases the gRPC connection to Qdrant.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// parseAddress splits an address string of the form "host:port" into its
// components.
func parseAddress(addr string) (string, int, error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			port, err := parsePort(addr[i+1:])
			if err != nil {
				return "", 0, err
			}
			return addr[:i], port, nil
		}
	}
	return "", 0, fmt.Errorf("missing port in address %q", addr)
}

// parsePort converts a port string to an integer.
func parsePort(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty port")
	}
	var port int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid port %q", s)
		}
		port = port*10 + int(c-'0')
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}
