package fieldgen

import (
	"testing"

	"streamgen/internal/errkind"
	"streamgen/internal/model"
)

type stubPool struct {
	records map[string]*model.Record
}

func (s *stubPool) Append(string, *model.Record) error { return nil }
func (s *stubPool) Count(string) int                   { return 0 }
func (s *stubPool) SampleID(string, model.Distribution, float64, bool) (string, error) {
	return "", nil
}
func (s *stubPool) Lookup(entity, id string) (*model.Record, error) {
	r, ok := s.records[entity+"/"+id]
	if !ok {
		return nil, errkind.Newf(errkind.MissingReference, entity, "", "no such record")
	}
	return r, nil
}

func TestGenerateStringSeqTemplate(t *testing.T) {
	fd := &model.FieldDescriptor{Kind: model.FieldString, Format: "ORDER_{seq:5d}"}
	ctx := &model.BuildContext{Entity: "orders", Seq: 42, Record: model.NewRecord()}
	v, err := Generate(fd, ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	s, _ := v.String()
	if s != "ORDER_00042" {
		t.Fatalf("got %q", s)
	}
}

func TestGenerateStringConstant(t *testing.T) {
	fd := &model.FieldDescriptor{Kind: model.FieldString, Format: "static-value"}
	ctx := &model.BuildContext{Entity: "orders", Seq: 1, Record: model.NewRecord()}
	v, err := Generate(fd, ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if s, _ := v.String(); s != "static-value" {
		t.Fatalf("got %q", s)
	}
}

func TestGenerateStringUnboundTokenFails(t *testing.T) {
	fd := &model.FieldDescriptor{Kind: model.FieldString, Format: "{missing}"}
	ctx := &model.BuildContext{Entity: "orders", Seq: 1, Record: model.NewRecord()}
	_, err := Generate(fd, ctx)
	if !errkind.Is(err, errkind.Config) {
		t.Fatalf("want ConfigError, got %v", err)
	}
}

func TestGenerateIntBounds(t *testing.T) {
	fd := &model.FieldDescriptor{Kind: model.FieldInt, Min: 10, Max: 10}
	ctx := &model.BuildContext{Entity: "x", Record: model.NewRecord()}
	v, err := Generate(fd, ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	n, _ := v.Int64()
	if n != 10 {
		t.Fatalf("got %d", n)
	}
}

func TestGenerateChoicePicksFromSet(t *testing.T) {
	fd := &model.FieldDescriptor{Kind: model.FieldChoice, Choices: []string{"a", "b", "c"}}
	ctx := &model.BuildContext{Entity: "x", Record: model.NewRecord()}
	v, err := Generate(fd, ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	s, _ := v.String()
	if s != "a" && s != "b" && s != "c" {
		t.Fatalf("got %q", s)
	}
}

func TestGenerateFakerUnknownMethodIsConfigError(t *testing.T) {
	fd := &model.FieldDescriptor{Kind: model.FieldFaker, Method: "not_a_real_method"}
	ctx := &model.BuildContext{Entity: "x", Record: model.NewRecord()}
	_, err := Generate(fd, ctx)
	if !errkind.Is(err, errkind.Config) {
		t.Fatalf("want ConfigError, got %v", err)
	}
}

func TestGenerateReferenceCopiesParentField(t *testing.T) {
	parent := model.NewRecord()
	parent.Set("total_amount", model.Float64(42.5))
	pool := &stubPool{records: map[string]*model.Record{"orders/ORDER_1": parent}}

	rec := model.NewRecord()
	rec.Set("order_id", model.String("ORDER_1"))

	fd := &model.FieldDescriptor{
		Kind:         model.FieldReference,
		Via:          "order_id",
		SourceEntity: "orders",
		SourceField:  "total_amount",
	}
	ctx := &model.BuildContext{Entity: "payments", Record: rec, Pool: pool}
	v, err := Generate(fd, ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	f, _ := v.Float64()
	if f != 42.5 {
		t.Fatalf("got %v", f)
	}
}

func TestGenerateReferenceUnboundViaFails(t *testing.T) {
	fd := &model.FieldDescriptor{Kind: model.FieldReference, Via: "order_id", SourceEntity: "orders", SourceField: "total_amount"}
	ctx := &model.BuildContext{Entity: "payments", Record: model.NewRecord(), Pool: &stubPool{records: map[string]*model.Record{}}}
	_, err := Generate(fd, ctx)
	if !errkind.Is(err, errkind.Config) {
		t.Fatalf("want ConfigError, got %v", err)
	}
}
