package search

import (
	"context"
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
)

const qdrantVectorSize = 1024

// QdrantIndex stores and queries page embeddings over Qdrant's gRPC API,
// keyed by ocr_id so matches join back onto SearchRow.
type QdrantIndex struct {
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	conn        *grpc.ClientConn
	collection  string
	log         *logging.Logger
}

// NewQdrantIndex connects to address and ensures collection exists with
// 1024-dimension cosine vectors sized for voyage-3 embeddings.
func NewQdrantIndex(ctx context.Context, address, collection string) (*QdrantIndex, error) {
	if address == "" || collection == "" {
		return nil, errors.InvalidArgument("qdrant address and collection are required")
	}

	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.TransientUpstream("failed to connect to qdrant", err)
	}

	idx := &QdrantIndex{
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		conn:        conn,
		collection:  collection,
		log:         logging.NewLogger("search.qdrant"),
	}

	if err := idx.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	listResp, err := q.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return errors.TransientUpstream("failed to list qdrant collections", err)
	}
	for _, c := range listResp.Collections {
		if c.Name == q.collection {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     qdrantVectorSize,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return errors.TransientUpstream("failed to create qdrant collection", err)
	}
	return nil
}

// UpsertPageVector stores the embedding for an OCRText page, identified by
// ocrID, for later retrieval by SearchVectors.
func (q *QdrantIndex) UpsertPageVector(ctx context.Context, ocrID string, vector []float32) error {
	if len(vector) != qdrantVectorSize {
		return errors.InvalidArgument(fmt.Sprintf("expected %d-dimension vector, got %d", qdrantVectorSize, len(vector)))
	}

	point := &qdrant.PointStruct{
		Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: ocrID}},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: vector}},
		},
		Payload: map[string]*qdrant.Value{
			"ocr_id": {Kind: &qdrant.Value_StringValue{StringValue: ocrID}},
		},
	}

	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return errors.TransientUpstream("failed to upsert qdrant vector", err)
	}
	return nil
}

// SearchVectors implements search.VectorIndex: top-k nearest neighbors by
// cosine similarity, returned as VectorMatch keyed by ocr_id.
func (q *QdrantIndex) SearchVectors(ctx context.Context, queryVector []float32, limit int) ([]VectorMatch, error) {
	if len(queryVector) != qdrantVectorSize {
		return nil, errors.InvalidArgument(fmt.Sprintf("expected %d-dimension query vector, got %d", qdrantVectorSize, len(queryVector)))
	}
	if limit <= 0 {
		limit = 10
	}

	resp, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         queryVector,
		Limit:          uint64(limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, errors.TransientUpstream("qdrant search failed", err)
	}

	matches := make([]VectorMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		ocrID := ""
		if r.Payload != nil {
			if v, ok := r.Payload["ocr_id"]; ok {
				ocrID = v.GetStringValue()
			}
		}
		if ocrID == "" && r.Id != nil {
			ocrID = r.Id.GetUuid()
		}
		matches = append(matches, VectorMatch{OCRID: ocrID, Score: float64(r.Score)})
	}
	return matches, nil
}

// Close releases the underlying gRPC connection.
func (q *QdrantIndex) Close() error {
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
