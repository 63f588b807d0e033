// Package qdrant implements vector.Repository against a Qdrant instance
// over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"sync"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/docchat-ai/docchat/internal/vector"
)

const (
	payloadDocumentID  = "documentId"
	payloadFileName    = "fileName"
	payloadChunkIndex  = "chunkIndex"
	payloadText        = "text"
	payloadTotalChunks = "totalChunks"
	payloadChunkID     = "chunkId"
)

// Repository is a Qdrant-backed vector.Repository.
type Repository struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
	collection  string

	mu        sync.Mutex
	dimension uint64 // remembered by EnsureCollection for NotFound recovery
}

// New connects to Qdrant at host:port and targets the named collection.
func New(ctx context.Context, host string, port int, collection string) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Repository{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
		collection:  collection,
	}, nil
}

// EnsureCollection checks for the collection and creates it if absent,
// with cosine distance. Concurrent creators can race; a creation that
// fails with AlreadyExists counts as success.
func (r *Repository) EnsureCollection(ctx context.Context, dimension uint64) error {
	r.mu.Lock()
	r.dimension = dimension
	r.mu.Unlock()

	exists, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: r.collection,
	})
	if err != nil {
		return fmt.Errorf("qdrant collection check: %w", err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("qdrant collection create: %w", err)
	}
	return nil
}

// Upsert writes points with wait=true so the call returns only after the
// store acknowledges visibility.
func (r *Repository) Upsert(ctx context.Context, points []vector.Point) error {
	pts := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		pts[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}}},
			Payload: encodePayload(p.Payload),
		}
	}

	wait := true
	err := r.withRecovery(ctx, func() error {
		_, callErr := r.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: r.collection,
			Wait:           &wait,
			Points:         pts,
		})
		return callErr
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (r *Repository) Search(ctx context.Context, vec []float32, limit uint64, filter *vector.SearchFilter) ([]vector.SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Limit:          limit,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if filter != nil && filter.DocumentID != "" {
		req.Filter = &pb.Filter{
			Must: []*pb.Condition{{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key:   payloadDocumentID,
						Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: filter.DocumentID}},
					},
				},
			}},
		}
	}

	var resp *pb.SearchResponse
	err := r.withRecovery(ctx, func() error {
		var callErr error
		resp, callErr = r.points.Search(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]vector.SearchResult, len(resp.Result))
	for i, pt := range resp.Result {
		results[i] = vector.SearchResult{
			ID:      pt.Id.GetUuid(),
			Score:   pt.Score,
			Payload: decodePayload(pt.Payload),
		}
	}
	return results, nil
}

// Ping checks that the store answers at all, for health probes.
func (r *Repository) Ping(ctx context.Context) error {
	_, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: r.collection,
	})
	return err
}

func (r *Repository) Close() error {
	return r.conn.Close()
}

// withRecovery runs a store call and, if the collection has gone missing
// since startup, recreates it once and retries that single call. This
// replaces an existence round-trip on every write.
func (r *Repository) withRecovery(ctx context.Context, call func() error) error {
	err := call()
	if status.Code(err) != codes.NotFound {
		return err
	}

	r.mu.Lock()
	dim := r.dimension
	r.mu.Unlock()
	if dim == 0 {
		return err
	}
	if ensureErr := r.EnsureCollection(ctx, dim); ensureErr != nil {
		return ensureErr
	}
	return call()
}

func encodePayload(p vector.ChunkPayload) map[string]*pb.Value {
	return map[string]*pb.Value{
		payloadDocumentID:  {Kind: &pb.Value_StringValue{StringValue: p.DocumentID}},
		payloadFileName:    {Kind: &pb.Value_StringValue{StringValue: p.FileName}},
		payloadChunkIndex:  {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
		payloadText:        {Kind: &pb.Value_StringValue{StringValue: p.Text}},
		payloadTotalChunks: {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.TotalChunks)}},
		payloadChunkID:     {Kind: &pb.Value_StringValue{StringValue: p.ChunkID}},
	}
}

func decodePayload(payload map[string]*pb.Value) vector.ChunkPayload {
	return vector.ChunkPayload{
		DocumentID:  payload[payloadDocumentID].GetStringValue(),
		FileName:    payload[payloadFileName].GetStringValue(),
		ChunkIndex:  int(payload[payloadChunkIndex].GetIntegerValue()),
		Text:        payload[payloadText].GetStringValue(),
		TotalChunks: int(payload[payloadTotalChunks].GetIntegerValue()),
		ChunkID:     payload[payloadChunkID].GetStringValue(),
	}
}

var _ vector.Repository = (*Repository)(nil)
