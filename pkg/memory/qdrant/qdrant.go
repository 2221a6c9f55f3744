// Package qdrant implements memory.VectorStore on a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jllopis/nabd/pkg/memory"
)

// Store keeps knowledge points in one collection.
type Store struct {
	client      pb.PointsClient
	collections pb.CollectionsClient
	conn        *grpc.ClientConn
	collection  string
	vectorSize  uint64
}

// New connects to the gRPC endpoint at addr. The collection is created on
// first write with vectors of vectorSize dimensions.
func New(addr, collection string, vectorSize uint64) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("did not connect: %v", err)
	}
	return newStore(conn, collection, vectorSize), nil
}

func newStore(conn *grpc.ClientConn, collection string, vectorSize uint64) *Store {
	return &Store{
		client:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		conn:        conn,
		collection:  collection,
		vectorSize:  vectorSize,
	}
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// PointID maps a document id to the stable UUID Qdrant requires.
func PointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("nabd:"+docID)).String()
}

func (s *Store) ensureCollection(ctx context.Context) error {
	if _, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.collection}); err == nil {
		return nil
	}
	_, err := s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     s.vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert implements memory.VectorStore.
func (s *Store) Upsert(ctx context.Context, points []memory.Point) error {
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	qPoints := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		qPoints[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(p.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: encodePayload(p.Document),
		}
	}

	wait := true
	_, err := s.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         qPoints,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Replace implements memory.VectorStore by recreating the collection.
func (s *Store) Replace(ctx context.Context, points []memory.Point) error {
	if _, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.collection}); err == nil {
		if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: s.collection}); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	return s.Upsert(ctx, points)
}

// Search implements memory.VectorStore.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]memory.SearchResult, error) {
	if limit < 1 {
		limit = 1
	}
	resp, err := s.client.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]memory.SearchResult, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		results = append(results, memory.SearchResult{
			Document: decodePayload(r.GetPayload()),
			Score:    r.GetScore(),
		})
	}
	return results, nil
}

func encodePayload(d memory.Document) map[string]*pb.Value {
	str := func(v string) *pb.Value {
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return map[string]*pb.Value{
		"id":      str(d.ID),
		"title":   str(d.Title),
		"source":  str(d.Source),
		"content": str(d.Content),
	}
}

func decodePayload(payload map[string]*pb.Value) memory.Document {
	str := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	return memory.Document{
		ID:      str("id"),
		Title:   str("title"),
		Source:  str("source"),
		Content: str("content"),
	}
}
