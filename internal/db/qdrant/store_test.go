package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
)

type fakeClient struct {
	points    []*qdrant.ScoredPoint
	err       error
	healthErr error
	got       *qdrant.QueryPoints
	closed    bool
}

func (f *fakeClient) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.got = req
	return f.points, f.err
}

func (f *fakeClient) HealthCheck(_ context.Context) (*qdrant.HealthCheckReply, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return &qdrant.HealthCheckReply{Title: "qdrant", Version: "1.16.2"}, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func floatPtr(f float64) *float64 { return &f }

func TestSearchKNN_Success(t *testing.T) {
	fc := &fakeClient{points: []*qdrant.ScoredPoint{
		{
			Id:    qdrant.NewIDNum(42),
			Score: 0.87,
			Payload: map[string]*qdrant.Value{
				"title":    qdrant.NewValueString("Red runner"),
				"price":    qdrant.NewValueDouble(79.99),
				"sales":    qdrant.NewValueInt(1200),
				"in_stock": qdrant.NewValueBool(true),
				"sizes":    qdrant.NewValueFromList(qdrant.NewValueString("41"), qdrant.NewValueString("42")),
			},
		},
		{
			Id:    qdrant.NewID("5f0c7e0a-2f1e-4c55-9a57-9d9f3d6a1b10"),
			Score: 0.5,
		},
	}}

	s := NewStoreForTest(fc)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "catalog_shop",
		Vector:    []float32{0.1, 0.2},
		K:         20,
		EF:        128,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fc.got.GetCollectionName() != "catalog_shop" {
		t.Errorf("collection = %q", fc.got.GetCollectionName())
	}
	if fc.got.GetLimit() != 20 {
		t.Errorf("limit = %d", fc.got.GetLimit())
	}
	if fc.got.GetParams().GetHnswEf() != 128 {
		t.Errorf("hnsw_ef = %d, want 128", fc.got.GetParams().GetHnswEf())
	}
	if fc.got.GetFilter() != nil {
		t.Error("expected no filter for empty expression")
	}

	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	first := result.Entries[0]
	if first.Key != "42" {
		t.Errorf("Key = %q, want 42", first.Key)
	}
	if first.Score < 0.869 || first.Score > 0.871 {
		t.Errorf("Score = %f", first.Score)
	}
	want := map[string]string{
		"title":    "Red runner",
		"price":    "79.99",
		"sales":    "1200",
		"in_stock": "true",
		"sizes":    "41,42",
	}
	for k, v := range want {
		if first.Fields[k] != v {
			t.Errorf("Fields[%q] = %q, want %q", k, first.Fields[k], v)
		}
	}
	if result.Entries[1].Key != "5f0c7e0a-2f1e-4c55-9a57-9d9f3d6a1b10" {
		t.Errorf("uuid key = %q", result.Entries[1].Key)
	}
}

func TestSearchKNN_NoEFLeavesParamsUnset(t *testing.T) {
	fc := &fakeClient{}
	s := NewStoreForTest(fc)

	if _, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "c", Vector: []float32{1}, K: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.got.GetParams() != nil {
		t.Error("expected nil search params when EF is 0")
	}
}

func TestSearchKNN_Filters(t *testing.T) {
	fc := &fakeClient{}
	s := NewStoreForTest(fc)

	brand, _ := filter.NewMatch("brand", "acme")
	r, _ := filter.NewRangeFilter(nil, floatPtr(10), floatPtr(100), nil)
	price, _ := filter.NewRange("price", r)
	excl, _ := filter.NewMatch("category", "socks")
	expr, _ := filter.NewExpression([]filter.Condition{brand, price}, []filter.Condition{excl})

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "c",
		Vector:    []float32{1},
		K:         5,
		Filters:   expr,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := fc.got.GetFilter()
	if len(f.GetMust()) != 2 || len(f.GetMustNot()) != 1 {
		t.Fatalf("must=%d must_not=%d", len(f.GetMust()), len(f.GetMustNot()))
	}
	match := f.GetMust()[0].GetField()
	if match.GetKey() != "brand" || match.GetMatch().GetKeyword() != "acme" {
		t.Errorf("unexpected match condition: %v", match)
	}
	rng := f.GetMust()[1].GetField().GetRange()
	if rng.GetGte() != 10 || rng.GetLt() != 100 || rng.Gt != nil || rng.Lte != nil {
		t.Errorf("unexpected range: %v", rng)
	}
}

func TestSearchKNN_Error(t *testing.T) {
	s := NewStoreForTest(&fakeClient{err: errors.New("rpc error: code = Unavailable")})

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "c", Vector: []float32{1}, K: 1})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpQuery {
		t.Fatalf("expected db.Error with op %s, got %v", db.OpQuery, err)
	}
}

func TestSearchKNN_CollectionNotFound(t *testing.T) {
	s := NewStoreForTest(&fakeClient{err: errors.New("rpc error: code = NotFound desc = Collection `c` doesn't exist! not found")})

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "c", Vector: []float32{1}, K: 1})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(&fakeClient{})
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10}); err == nil {
		t.Error("expected error for empty collection")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "c", K: 10}); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "c", Vector: []float32{0.1}}); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestPingAndClose(t *testing.T) {
	fc := &fakeClient{}
	s := NewStoreForTest(fc)

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}

	fc.healthErr = errors.New("down")
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}

	s.Close()
	if !fc.closed {
		t.Error("expected client to be closed")
	}
}

func TestSplitAddr(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"localhost:6334", "localhost", 6334, false},
		{"qdrant.internal", "qdrant.internal", defaultPort, false},
		{"host:abc", "", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.addr, func(t *testing.T) {
			host, port, err := splitAddr(tc.addr)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if host != tc.wantHost || port != tc.wantPort {
				t.Errorf("got %s:%d, want %s:%d", host, port, tc.wantHost, tc.wantPort)
			}
		})
	}
}
