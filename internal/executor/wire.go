// Package executor implements the wazzi-executor wire protocol (spec
// §6 "Executor wire protocol") and the subprocess lifecycle around it:
// one length-prefixed msgpack request per call, one framed response,
// grounded on original_source/executor/src/lib.rs's RunningExecutor
// (there built on capnp messages over the same child stdin/stdout
// pipes; this port swaps the wire codec for
// github.com/hashicorp/go-msgpack/codec, which needs no schema
// compiler, while keeping the same framed-request/framed-response
// shape spec §6 requires).
package executor

import (
	"github.com/wazzi-fuzz/wazzi/internal/wasitype"
)

// ResultPlaceholder describes an out-parameter or result slot the
// executor must allocate space for, named but not yet valued (spec §6,
// "placeholder result values with type descriptors").
type ResultPlaceholder struct {
	Name string       `codec:"name"`
	Type wasitype.Wire `codec:"type"`
}

// CallRequest asks the executor to invoke one function (spec §6
// "CallRequest").
type CallRequest struct {
	Func    string              `codec:"func"`
	Params  []wasitype.Wire     `codec:"params"`
	Results []ResultPlaceholder `codec:"results"`
}

// DeclRequest pre-seeds a resource value in the executor's own linear
// memory bookkeeping (spec §6 "DeclRequest"). Process.Decl sends it;
// seed Decl replay (callengine.Engine.ReplayDecl) registers the resource
// in the resource context only and does not send a DeclRequest.
type DeclRequest struct {
	ResourceID uint64        `codec:"resource_id"`
	Value      wasitype.Wire `codec:"value"`
}

// Request is the sum type written to the executor's stdin: exactly one
// of Call or Decl is set.
type Request struct {
	Call *CallRequest `codec:"call,omitempty"`
	Decl *DeclRequest `codec:"decl,omitempty"`
}

// CallResponse is the executor's reply to a CallRequest (spec §6
// "CallResponse"). Errno is nil when the call itself could not report
// one (e.g. a void-returning function).
type CallResponse struct {
	Errno   *int32          `codec:"errno,omitempty"`
	Params  []wasitype.Wire `codec:"params"`
	Results []wasitype.Wire `codec:"results"`
}
