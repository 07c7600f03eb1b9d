// Package logging wraps an extrinsics.Extrinsics with a log line before
// and after every dispatch, the way the teacher's transport/v1 brackets
// every exported-function invocation with log.LDebugf calls. Composition
// is transparent: Logging implements extrinsics.Extrinsics itself, so it
// can wrap another Logging, or be wrapped.
package logging

import (
	"github.com/redshirt-os/redshirt/extrinsics"
	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/internal/log"
	"github.com/redshirt-os/redshirt/types"
)

// Logging decorates an inner extrinsics.Extrinsics with call logging.
type Logging struct {
	inner  extrinsics.Extrinsics
	logger *log.Logger
}

var _ extrinsics.Extrinsics = (*Logging)(nil)

// Wrap returns inner decorated with logging at logger, or the package
// default logger if logger is nil.
func Wrap(inner extrinsics.Extrinsics, logger *log.Logger) *Logging {
	return &Logging{inner: inner, logger: log.OrDefault(logger)}
}

// Resolve implements extrinsics.Extrinsics.
func (l *Logging) Resolve(iface ifacehash.InterfaceHash, fn string) (extrinsics.Token, types.Signature, bool) {
	return l.inner.Resolve(iface, fn)
}

// NewContext implements extrinsics.Extrinsics, logging the call's
// parameters and the action it produced.
func (l *Logging) NewContext(tok extrinsics.Token, tid types.ThreadId, params []types.WasmValue, mem extrinsics.MemoryAccessor) (any, extrinsics.Action) {
	log.LDebugf(l.logger, "extrinsic %d: %v called with %d params", tok, tid, len(params))
	ctx, action := l.inner.NewContext(tok, tid, params, mem)
	log.LDebugf(l.logger, "extrinsic %d: %v action=%s", tok, tid, describeAction(action))
	return ctx, action
}

// InjectMessageResponse implements extrinsics.Extrinsics, logging the
// response delivery and the resulting action.
func (l *Logging) InjectMessageResponse(tok extrinsics.Token, ctx any, response []byte, failed bool, mem extrinsics.MemoryAccessor) extrinsics.Action {
	log.LDebugf(l.logger, "extrinsic %d: response delivered, %d bytes, failed=%v", tok, len(response), failed)
	action := l.inner.InjectMessageResponse(tok, ctx, response, failed, mem)
	log.LDebugf(l.logger, "extrinsic %d: action=%s", tok, describeAction(action))
	return action
}

func describeAction(a extrinsics.Action) string {
	switch a.Kind {
	case extrinsics.Resume:
		return "resume"
	case extrinsics.ProgramCrash:
		return "crash"
	case extrinsics.EmitMessage:
		return "emit"
	default:
		return "unknown"
	}
}
