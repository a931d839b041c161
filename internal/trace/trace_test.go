package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazzi-fuzz/wazzi/internal/resource"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

func TestMemSinkPreservesOrder(t *testing.T) {
	sink := NewMemSink()
	rec := NewRecorder(sink)

	require.NoError(t, rec.Record(CallRecord{Func: "a"}))
	require.NoError(t, rec.Record(CallRecord{Func: "b"}))

	require.Equal(t, []CallRecord{{Func: "a"}, {Func: "b"}}, sink.Records)
}

func TestSnapshotResourcesCoversEveryRegisteredID(t *testing.T) {
	ctx := resource.NewContext()
	u8 := wasitype.Type{Kind: wasitype.KindU8}
	ctx.NewResource("fd", wasitype.Value{Type: u8, Int: 3})
	ctx.NewResource("fd", wasitype.Value{Type: u8, Int: 4})

	snap := SnapshotResources(ctx)
	require.Len(t, snap.Resources, 2)
	require.Equal(t, "fd", snap.Resources[0].TypeName)
	require.Equal(t, uint64(4), snap.Resources[1].Value.Int)
}

func TestFsRunStoreWritesResourceCtxJSON(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFsRunStore(dir)
	require.NoError(t, err)

	ctx := resource.NewContext()
	ctx.NewResource("fd", wasitype.Value{Type: wasitype.Type{Kind: wasitype.KindU8}, Int: 3})

	require.NoError(t, store.FinishRun(ctx))

	_, err = os.Stat(filepath.Join(dir, "resource_ctx.json"))
	require.NoError(t, err)
}
