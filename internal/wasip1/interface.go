// Package wasip1 builds a concrete iface.Interface for a trimmed slice
// of WASI preview1: the functions named by spec §8's end-to-end
// scenarios (args/environ introspection, clock_time_get, path_open,
// fd_write, fd_read, fd_seek) plus the "fd" resource type they share.
// Grounded on wazero's wasi_snapshot_preview1 package for the shape of
// each function's parameters and results, and on spec §8 directly for
// the fd_seek input contract and the offset-tracking effects.
package wasip1

import (
	"math/big"

	"github.com/wazzi-fuzz/wazzi/internal/iface"
	"github.com/wazzi-fuzz/wazzi/internal/term"
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// FdSeekMaxOffset is the byte-offset bound spec §8's solver-contract
// test asserts fd_seek's resulting offset never exceeds.
var FdSeekMaxOffset = big.NewInt(17592186040320)

// BuildInterface constructs the preview1-shaped Interface. Functions
// and types are pushed in the order a reader would expect preview1's
// own module to declare them: introspection first, then the
// filesystem surface.
func BuildInterface() (*iface.Interface, error) {
	ifc := iface.NewInterface()

	types := []struct {
		name string
		t    wasitype.Type
	}{
		{"u8", wasitype.Type{Kind: wasitype.KindU8}},
		{"u32", wasitype.Type{Kind: wasitype.KindU32}},
		{"u64", wasitype.Type{Kind: wasitype.KindU64}},
		{"s64", wasitype.Type{Kind: wasitype.KindS64}},
		{"handle", wasitype.Type{Kind: wasitype.KindHandle}},
		{"string", wasitype.StringType()},
		{"bytes", wasitype.ListType(wasitype.Type{Kind: wasitype.KindU8})},
		{"strlist", wasitype.ListType(wasitype.StringType())},
		{"oflags", wasitype.FlagsType(wasitype.IntReprU32, []string{"creat", "directory", "excl", "trunc"})},
		{"fdflags", wasitype.FlagsType(wasitype.IntReprU32, []string{"append", "dsync", "nonblock", "rsync", "sync"})},
		{"rights", wasitype.FlagsType(wasitype.IntReprU64, []string{"fd_read", "fd_write", "path_open", "fd_seek"})},
		{"whence", wasitype.VariantType(wasitype.IntReprU8, []wasitype.VariantCase{
			{Name: "set"}, {Name: "cur"}, {Name: "end"},
		})},
		{"filetype", wasitype.VariantType(wasitype.IntReprU8, []wasitype.VariantCase{
			{Name: "unknown"}, {Name: "regular_file"}, {Name: "directory"},
		})},
	}
	for _, td := range types {
		if _, err := ifc.Types.Push(td.name, iface.TypeDef{Concrete: td.t}); err != nil {
			return nil, err
		}
	}

	if _, err := ifc.Resources.Push("fd", &iface.ResourceType{
		Name:  "fd",
		Value: iface.Symbolic("handle"),
		Attributes: []iface.AttributeDef{
			{Name: "offset", Type: iface.Symbolic("u64")},
			{Name: "path", Type: iface.Symbolic("string")},
			{Name: "file-type", Type: iface.Symbolic("filetype")},
		},
		Fungible: false,
	}); err != nil {
		return nil, err
	}

	fns := []*iface.Function{
		argsSizesGet(),
		argsGet(),
		environSizesGet(),
		environGet(),
		clockTimeGet(),
		pathOpen(),
		fdWrite(),
		fdRead(),
		fdSeek(),
	}
	for _, fn := range fns {
		if _, err := ifc.Functions.Push(fn.Name, fn); err != nil {
			return nil, err
		}
	}

	return ifc, nil
}

func argsSizesGet() *iface.Function {
	return &iface.Function{
		Name: "args_sizes_get",
		Results: []iface.Result{
			{Name: "argc", Type: iface.Symbolic("u32")},
			{Name: "argv_buf_size", Type: iface.Symbolic("u32")},
		},
	}
}

func argsGet() *iface.Function {
	return &iface.Function{
		Name: "args_get",
		Params: []iface.Param{
			{Name: "argc", Type: iface.Symbolic("u32")},
			{Name: "argv_buf_size", Type: iface.Symbolic("u32")},
		},
		Results: []iface.Result{
			{Name: "argv", Type: iface.Symbolic("strlist")},
		},
	}
}

func environSizesGet() *iface.Function {
	return &iface.Function{
		Name: "environ_sizes_get",
		Results: []iface.Result{
			{Name: "environ_count", Type: iface.Symbolic("u32")},
			{Name: "environ_buf_size", Type: iface.Symbolic("u32")},
		},
	}
}

func environGet() *iface.Function {
	return &iface.Function{
		Name: "environ_get",
		Params: []iface.Param{
			{Name: "environ_count", Type: iface.Symbolic("u32")},
			{Name: "environ_buf_size", Type: iface.Symbolic("u32")},
		},
		Results: []iface.Result{
			{Name: "environ", Type: iface.Symbolic("strlist")},
		},
	}
}

func clockTimeGet() *iface.Function {
	return &iface.Function{
		Name: "clock_time_get",
		Params: []iface.Param{
			{Name: "clock_id", Type: iface.Symbolic("u32")},
			{Name: "precision", Type: iface.Symbolic("u64")},
		},
		Results: []iface.Result{
			{Name: "timestamp", Type: iface.Symbolic("u64")},
		},
	}
}

// pathOpen registers the new fd under the offset/path/file-type
// attribute schema fd_write/fd_read/fd_seek's effects rely on (spec §8
// scenario 00-creat: "a new resource of type fd is registered with
// file-type=regular_file").
func pathOpen() *iface.Function {
	return &iface.Function{
		Name: "path_open",
		Params: []iface.Param{
			{Name: "dirfd", Type: iface.Symbolic("handle"), ResourceType: "fd"},
			{Name: "dirflags", Type: iface.Symbolic("u32")},
			{Name: "path", Type: iface.Symbolic("string")},
			{Name: "oflags", Type: iface.Symbolic("oflags")},
			{Name: "fs_rights_base", Type: iface.Symbolic("rights")},
			{Name: "fs_rights_inherit", Type: iface.Symbolic("rights")},
			{Name: "fdflags", Type: iface.Symbolic("fdflags")},
		},
		Results: []iface.Result{
			{Name: "fd", Type: iface.Symbolic("handle"), ResourceType: "fd"},
		},
		Effects: []term.EffectStmt{
			term.AttrSet{Resource: "fd", Attr: "offset", Value: term.FromTerm{Term: term.IntConst{Value: big.NewInt(0)}}},
			term.AttrSet{Resource: "fd", Attr: "path", Value: term.FromTerm{Term: term.Param{Name: "path"}}},
			term.AttrSet{Resource: "fd", Attr: "file-type", Value: term.FromTerm{
				Term: term.VariantConst{Type: "filetype", Case: "regular_file"},
			}},
		},
	}
}

func fdWrite() *iface.Function {
	return &iface.Function{
		Name: "fd_write",
		Params: []iface.Param{
			{Name: "fd", Type: iface.Symbolic("handle"), ResourceType: "fd"},
			{Name: "data", Type: iface.Symbolic("bytes")},
		},
		Results: []iface.Result{
			{Name: "nwritten", Type: iface.Symbolic("u32")},
		},
		Effects: []term.EffectStmt{
			term.AttrSet{Resource: "fd", Attr: "offset", Value: term.FromTerm{Term: term.IntAdd{
				Lhs: term.AttrGet{Target: term.Param{Name: "fd"}, Attr: "offset"},
				Rhs: term.Result{Name: "nwritten"},
			}}},
		},
	}
}

func fdRead() *iface.Function {
	return &iface.Function{
		Name: "fd_read",
		Params: []iface.Param{
			{Name: "fd", Type: iface.Symbolic("handle"), ResourceType: "fd"},
			{Name: "len", Type: iface.Symbolic("u32")},
		},
		Results: []iface.Result{
			{Name: "data", Type: iface.Symbolic("bytes")},
			{Name: "nread", Type: iface.Symbolic("u32")},
		},
		Effects: []term.EffectStmt{
			term.AttrSet{Resource: "fd", Attr: "offset", Value: term.FromTerm{Term: term.IntAdd{
				Lhs: term.AttrGet{Target: term.Param{Name: "fd"}, Attr: "offset"},
				Rhs: term.Result{Name: "nread"},
			}}},
		},
	}
}

// fdSeek restricts its input contract to whence=cur (spec §8's named
// solver-contract test): the other two whence cases would need
// conditional effects the term language has no branch for, so the
// contract itself rules them out rather than the effect trying to
// express "if whence is X, offset becomes Y else Z".
func fdSeek() *iface.Function {
	return &iface.Function{
		Name: "fd_seek",
		Params: []iface.Param{
			{Name: "fd", Type: iface.Symbolic("handle"), ResourceType: "fd"},
			{Name: "offset", Type: iface.Symbolic("s64")},
			{Name: "whence", Type: iface.Symbolic("whence")},
		},
		Results: []iface.Result{
			{Name: "newoffset", Type: iface.Symbolic("u64")},
		},
		InputContract: term.And{Clauses: []term.Term{
			term.ValueEq{
				Lhs: term.Param{Name: "whence"},
				Rhs: term.VariantConst{Type: "whence", Case: "cur"},
			},
			term.IntLe{
				Lhs: term.IntAdd{Lhs: term.Param{Name: "offset"}, Rhs: term.AttrGet{Target: term.Param{Name: "fd"}, Attr: "offset"}},
				Rhs: term.IntConst{Value: FdSeekMaxOffset},
			},
			term.IntLe{
				Lhs: term.IntConst{Value: big.NewInt(0)},
				Rhs: term.IntAdd{Lhs: term.Param{Name: "offset"}, Rhs: term.AttrGet{Target: term.Param{Name: "fd"}, Attr: "offset"}},
			},
		}},
		Effects: []term.EffectStmt{
			term.AttrSet{Resource: "fd", Attr: "offset", Value: term.FromTerm{Term: term.IntAdd{
				Lhs: term.AttrGet{Target: term.Param{Name: "fd"}, Attr: "offset"},
				Rhs: term.Param{Name: "offset"},
			}}},
		},
	}
}
