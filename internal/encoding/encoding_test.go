package encoding

import (
	"encoding/binary"
	"reflect"
	"strings"
	"testing"

	"github.com/linkedin/goavro/v2"
	"github.com/riferrei/srclient"

	"streamgen/internal/model"
)

func sampleEntity() *model.EntityDescriptor {
	e := &model.EntityDescriptor{Name: "customers", KafkaTopic: "customers"}
	e.SetSchemaField("customer_id", &model.FieldDescriptor{Kind: model.FieldString})
	e.SetSchemaField("name", &model.FieldDescriptor{Kind: model.FieldFaker})
	e.SetSchemaField("age", &model.FieldDescriptor{Kind: model.FieldInt})
	return e
}

func sampleRecord() *model.Record {
	r := model.NewRecord()
	r.Set("customer_id", model.String("CUST_0001"))
	r.Set("name", model.String("Ada Lovelace"))
	r.Set("age", model.Int64(30))
	return r
}

func TestJSONEncoderPreservesFieldOrder(t *testing.T) {
	enc := NewJSONEncoder()
	b, err := enc.Encode(sampleEntity(), sampleRecord())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(b)
	iCustomer := strings.Index(s, "customer_id")
	iName := strings.Index(s, `"name"`)
	iAge := strings.Index(s, "age")
	if !(iCustomer < iName && iName < iAge) {
		t.Fatalf("field order not preserved: %s", s)
	}
}

type stubSchemaHandle struct {
	id     int
	schema string
}

func (s *stubSchemaHandle) ID() int        { return s.id }
func (s *stubSchemaHandle) Schema() string { return s.schema }

type stubRegistryClient struct {
	id     int
	schema string
}

func (s *stubRegistryClient) GetLatestSchema(subject string) (SchemaHandle, error) {
	return nil, errNotFound
}

func (s *stubRegistryClient) CreateSchema(subject, schema string, schemaType srclient.SchemaType) (SchemaHandle, error) {
	return &stubSchemaHandle{id: s.id, schema: schema}, nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "schema not found" }

// TestSchemaFramedEnvelope mirrors spec.md §8 scenario E5: the first
// byte of every produced payload is 0x00, the next four are the
// big-endian schema ID.
func TestSchemaFramedEnvelope(t *testing.T) {
	entity := &model.EntityDescriptor{Name: "customers", KafkaTopic: "customers"}
	entity.SetSchemaField("customer_id", &model.FieldDescriptor{Kind: model.FieldString})

	client := &stubRegistryClient{id: 7, schema: `{"type":"record","name":"customers_record","fields":[{"name":"customer_id","type":["null","string"]}]}`}
	enc := NewSchemaFramedEncoder(client)

	rec := model.NewRecord()
	rec.Set("customer_id", model.String("CUST_0001"))

	out, err := enc.Encode(entity, rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if out[0] != 0x00 {
		t.Fatalf("magic byte = %#x, want 0x00", out[0])
	}
	id := binary.BigEndian.Uint32(out[1:5])
	if id != 7 {
		t.Fatalf("schema id = %d, want 7", id)
	}
}

// unwrapUnion strips goavro's single-key union disambiguation (e.g.
// {"string": v}) down to the bare value it carries.
func unwrapUnion(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	for _, inner := range m {
		return inner
	}
	return v
}

// TestSchemaFramedRoundTrip backs spec.md §8 property 6: a record
// encoded through SchemaFramedEncoder, decoded with a codec built from
// the same schema, must equal the submitted record field-for-field.
func TestSchemaFramedRoundTrip(t *testing.T) {
	entity := sampleEntity()
	schemaJSON, err := buildAvroSchema(entity)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	client := &stubRegistryClient{id: 3, schema: schemaJSON}
	enc := NewSchemaFramedEncoder(client)

	rec := sampleRecord()
	out, err := enc.Encode(entity, rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	codec, err := goavro.NewCodec(schemaJSON)
	if err != nil {
		t.Fatalf("build codec: %v", err)
	}
	decoded, _, err := codec.NativeFromBinary(out[5:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	decodedRec, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded payload is %T, want map[string]any", decoded)
	}

	for _, name := range []string{"customer_id", "name", "age"} {
		want, ok := rec.Get(name)
		if !ok {
			t.Fatalf("sample record missing field %q", name)
		}
		got := unwrapUnion(decodedRec[name])
		if !reflect.DeepEqual(got, want.Native()) {
			t.Fatalf("field %q round-tripped to %#v, want %#v", name, got, want.Native())
		}
	}
}
