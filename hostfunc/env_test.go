package hostfunc

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/internal/modbuild"
)

type lines struct {
	got  []string
	fail error
}

func (l *lines) Record(line string) error {
	if l.fail != nil {
		return l.fail
	}
	l.got = append(l.got, line)
	return nil
}

func TestEnvRecordsInCallOrder(t *testing.T) {
	rec := &lines{}
	env := NewEnv(rec)
	env.Memory().Bind(newMemory(t, map[uint32][]byte{8: []byte("ok\x00")}))

	require.NoError(t, env.PrintI32(42))
	require.NoError(t, env.PrintF64(3.0))
	require.NoError(t, env.PrintStr(nil, 8))

	assert.Equal(t, []string{"42", "3", "ok"}, rec.got)
	assert.Equal(t, 3, env.Calls())
}

func TestEnvPrintStrFallsBackToCaller(t *testing.T) {
	rec := &lines{}
	env := NewEnv(rec)

	caller := newMemory(t, map[uint32][]byte{0: []byte("early\x00")})
	require.NoError(t, env.PrintStr(caller, 0))
	assert.Equal(t, []string{"early"}, rec.got)

	err := env.PrintStr(nil, 0)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrExecutionTrap))
}

// noMemory returns the memory handle of an instance that declares none.
func noMemory(t *testing.T) api.Memory {
	t.Helper()
	ctx := context.Background()

	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	mod, err := rt.Instantiate(ctx, modbuild.New().Bytes())
	require.NoError(t, err)
	return mod.Memory()
}

func TestEnvPrintStrWithoutLinearMemory(t *testing.T) {
	rec := &lines{}
	env := NewEnv(rec)

	mem := noMemory(t)
	env.Memory().Bind(mem)
	assert.False(t, env.Memory().Bound())

	err := env.PrintStr(mem, 0)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrExecutionTrap))
	assert.Contains(t, err.Error(), "module has no linear memory")
	assert.Empty(t, rec.got)
	assert.Zero(t, env.Calls())
}

func TestEnvRecorderFailure(t *testing.T) {
	rec := &lines{fail: errors.SinkWrite("append line 1", stderrors.New("disk full"))}
	env := NewEnv(rec)

	err := env.PrintI32(1)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSinkWriteFailure))
	assert.Zero(t, env.Calls())
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry(NewEnv(&lines{}))
	assert.Equal(t, []string{"print_f64", "print_i32", "print_str"}, reg.List())

	fn, ok := reg.Get(NamePrintStr)
	require.True(t, ok)
	assert.Len(t, fn.Params, 1)
	assert.Empty(t, fn.Results)

	_, ok = reg.Get("print_i64")
	assert.False(t, ok)
}

func TestRegistryMissing(t *testing.T) {
	ctx := context.Background()

	b := modbuild.New()
	b.EnvImports()
	b.Import("env", "print_i64", []modbuild.ValType{modbuild.I64}, nil)
	b.Import("wasi_snapshot_preview1", "fd_write", []modbuild.ValType{modbuild.I32, modbuild.I32, modbuild.I32, modbuild.I32}, []modbuild.ValType{modbuild.I32})

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, b.Bytes())
	require.NoError(t, err)

	reg := NewRegistry(NewEnv(&lines{}))
	assert.Equal(t,
		[]string{"env.print_i64", "wasi_snapshot_preview1.fd_write"},
		reg.Missing(compiled.ImportedFunctions()))
}

func TestRegistryInstantiate(t *testing.T) {
	ctx := context.Background()

	b := modbuild.New()
	printI32, printF64, printStr := b.EnvImports()
	b.Memory(1, "memory")
	b.Data(64, []byte("done\x00"))
	main := b.Func(nil, nil, modbuild.NewCode().
		I32Const(-5).Call(printI32).
		F64Const(0.5).Call(printF64).
		I32Const(64).Call(printStr))
	b.Export("main", main)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	rec := &lines{}
	env := NewEnv(rec)
	_, err := NewRegistry(env).Instantiate(ctx, rt)
	require.NoError(t, err)

	mod, err := rt.Instantiate(ctx, b.Bytes())
	require.NoError(t, err)
	env.Memory().Bind(mod.Memory())

	_, err = mod.ExportedFunction("main").Call(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"-5", "0.5", "done"}, rec.got)
}

func TestHostPanicSurfacesTaxonomyError(t *testing.T) {
	ctx := context.Background()

	b := modbuild.New()
	printI32, _, _ := b.EnvImports()
	b.Export("main", b.Func(nil, nil, modbuild.NewCode().I32Const(1).Call(printI32)))

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	rec := &lines{fail: errors.SinkWrite("append line 1", stderrors.New("disk full"))}
	_, err := NewRegistry(NewEnv(rec)).Instantiate(ctx, rt)
	require.NoError(t, err)

	mod, err := rt.Instantiate(ctx, b.Bytes())
	require.NoError(t, err)

	_, err = mod.ExportedFunction("main").Call(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.KindSinkWriteFailure, errors.KindOf(err))
}
