package api

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/autoannotate/internal/core/db"
	"github.com/solatis/autoannotate/internal/rules"
	"github.com/solatis/autoannotate/internal/tree"
	"github.com/solatis/autoannotate/internal/types"
)

const documentJSON = `{
  "module": "app",
  "variant": "jvmMain",
  "files": [
    {
      "kind": "file",
      "name": "Hello.kt",
      "package": "com.project",
      "members": [
        {"kind": "class", "name": "Hello", "members": [
          {"kind": "class", "name": "Inner"}
        ]},
        {"kind": "function", "name": "main"}
      ]
    }
  ],
  "externals": [{"fqName": "com.project.MyDto", "kind": "annotation"}]
}`

func testRuleSet(t *testing.T) *rules.RuleSet {
	t.Helper()
	rule := types.DefaultRule()
	rule.AnnotationsToAdd = []types.AnnotationSpec{{FQName: "com.project.MyDto", Parameters: map[string]string{"name": "{className}"}}}
	rule.ClassTargets = []types.ClassTarget{types.ClassRegular}
	rule.PackageTarget = []types.PackageTarget{{Pattern: "com.project", MatchType: types.MatchExact}}
	rs, err := rules.NewRuleSet([]types.Rule{rule})
	require.NoError(t, err)
	return rs
}

func decodeDoc(t *testing.T) *tree.Document {
	t.Helper()
	doc, err := tree.Decode([]byte(documentJSON), tree.FormatJSON)
	require.NoError(t, err)
	return doc
}

type failingRecorder struct{}

func (failingRecorder) RecordRun(context.Context, *db.Run, []tree.Change) (types.RunID, error) {
	return "", errors.New("database is locked")
}

func newRunStore(t *testing.T) *db.RunStore {
	t.Helper()
	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.MigrateUp(database))
	queries, err := db.LoadQueries(database)
	require.NoError(t, err)
	return db.NewRunStore(queries)
}

func TestAnnotator_Annotate(t *testing.T) {
	a := NewAnnotator(testRuleSet(t))
	res, err := a.Annotate(context.Background(), decodeDoc(t))
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	// Hello and Inner, the nested class annotated normally
	assert.Equal(t, 2, res.Stats.Applied)
	require.Len(t, res.Changes, 2)
	assert.Equal(t, "com.project.Hello", res.Changes[0].Declaration)
	assert.Equal(t, "Hello", res.Changes[0].Annotation.Arguments["name"])
	assert.Equal(t, "com.project.Hello.Inner", res.Changes[1].Declaration)
	assert.Empty(t, res.Diagnostics)
}

func TestAnnotator_RecordsRuns(t *testing.T) {
	store := newRunStore(t)
	a := NewAnnotator(testRuleSet(t), WithRunRecorder(store))

	res, err := a.Annotate(context.Background(), decodeDoc(t))
	require.NoError(t, err)

	run, err := store.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "app", run.Module)
	assert.Equal(t, "jvmMain", run.Variant)
	assert.Equal(t, a.ETag(), run.RuleSetETag)
	assert.Equal(t, 2, run.Applied)

	rows, err := store.ListRunAnnotations(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestAnnotator_Errors(t *testing.T) {
	t.Run("store failure keeps result", func(t *testing.T) {
		a := NewAnnotator(testRuleSet(t), WithRunRecorder(failingRecorder{}))
		res, err := a.Annotate(context.Background(), decodeDoc(t))
		require.ErrorIs(t, err, ErrRecordRun)
		require.NotNil(t, res)
		assert.Len(t, res.Changes, 2)
	})

	t.Run("too many declarations", func(t *testing.T) {
		a := NewAnnotator(testRuleSet(t), WithMaxDeclarations(3))
		_, err := a.Annotate(context.Background(), decodeDoc(t))
		assert.ErrorIs(t, err, types.ErrTooManyDeclarations)
	})

	t.Run("non-file root", func(t *testing.T) {
		a := NewAnnotator(testRuleSet(t))
		_, err := a.Annotate(context.Background(), &tree.Document{Files: []*types.Declaration{{Kind: types.DeclClass, Name: "X"}}})
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewAnnotator(nil).Annotate(ctx, decodeDoc(t))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRuleSetETag(t *testing.T) {
	a := RuleSetETag(testRuleSet(t))
	b := RuleSetETag(testRuleSet(t))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, RuleSetETag(rules.EmptyRuleSet()))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{ErrInvalidDocument, codes.InvalidArgument},
		{types.ErrTooManyDeclarations, codes.InvalidArgument},
		{ErrRecordRun, codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}

// dialService serves svc on an in-memory listener and returns a client.
func dialService(t *testing.T, svc AnnotatorServer) *AnnotatorClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterAnnotatorServer(s, svc)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewAnnotatorClient(conn)
}

func mustStruct(t *testing.T, js string) *structpb.Struct {
	t.Helper()
	s := &structpb.Struct{}
	require.NoError(t, protojson.Unmarshal([]byte(js), s))
	return s
}

func TestService_Apply(t *testing.T) {
	svc, err := NewAnnotatorService(NewAnnotator(testRuleSet(t)), 5*time.Second)
	require.NoError(t, err)
	client := dialService(t, svc)

	out, err := client.Apply(context.Background(), mustStruct(t, `{"document": `+documentJSON+`, "variant": "commonMain"}`))
	require.NoError(t, err)

	fields := out.AsMap()
	assert.NotEmpty(t, fields["runId"])
	changes, ok := fields["changes"].([]any)
	require.True(t, ok)
	assert.Len(t, changes, 2)

	doc := fields["document"].(map[string]any)
	assert.Equal(t, "commonMain", doc["variant"])
	stats := fields["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["applied"])
}

func TestService_ApplyErrors(t *testing.T) {
	t.Run("invalid argument", func(t *testing.T) {
		svc, err := NewAnnotatorService(NewAnnotator(testRuleSet(t)), 0)
		require.NoError(t, err)
		client := dialService(t, svc)

		inputs := []string{
			`{}`,
			`{"document": {"files": [{"kind": "module", "name": "x"}]}}`,
			`{"document": {"files": [], "unexpected": true}}`,
			`{"document": {"files": []}, "module": 3}`,
		}
		for _, in := range inputs {
			_, err := client.Apply(context.Background(), mustStruct(t, in))
			assert.Equal(t, codes.InvalidArgument, status.Code(err), in)
		}
	})

	t.Run("oversized", func(t *testing.T) {
		svc, err := NewAnnotatorService(NewAnnotator(testRuleSet(t), WithMaxDeclarations(2)), 0)
		require.NoError(t, err)
		_, err = dialService(t, svc).Apply(context.Background(), mustStruct(t, `{"document": `+documentJSON+`}`))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("store unavailable", func(t *testing.T) {
		svc, err := NewAnnotatorService(NewAnnotator(testRuleSet(t), WithRunRecorder(failingRecorder{})), 0)
		require.NoError(t, err)
		_, err = dialService(t, svc).Apply(context.Background(), mustStruct(t, `{"document": `+documentJSON+`}`))
		assert.Equal(t, codes.Unavailable, status.Code(err))
	})
}

func TestService_DescribeRules(t *testing.T) {
	a := NewAnnotator(testRuleSet(t))
	svc, err := NewAnnotatorService(a, 0)
	require.NoError(t, err)
	client := dialService(t, svc)

	out, err := client.DescribeRules(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	fields := out.AsMap()
	assert.Equal(t, a.ETag(), fields["etag"])
	assert.Equal(t, false, fields["notModified"])
	ruleList, ok := fields["rules"].([]any)
	require.True(t, ok)
	require.Len(t, ruleList, 1)
	first := ruleList[0].(map[string]any)
	assert.Equal(t, []any{"REGULAR_CLASS"}, first["classTargets"])

	out, err = client.DescribeRules(context.Background(), mustStruct(t, `{"ifNoneMatch": "`+a.ETag()+`"}`))
	require.NoError(t, err)
	fields = out.AsMap()
	assert.Equal(t, true, fields["notModified"])
	assert.NotContains(t, fields, "rules")
}

func TestNewAnnotatorService_NilAnnotator(t *testing.T) {
	_, err := NewAnnotatorService(nil, 0)
	assert.Error(t, err)
}
