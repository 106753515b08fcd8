package protocol

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/mesh-intelligence/settings-sdk/pkg/extension"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// Phase is a step of request handling.
type Phase string

// Phases, in the order a request passes through them.
const (
	PhaseIdle        Phase = "idle"
	PhaseDecoding    Phase = "decoding"
	PhaseDispatching Phase = "dispatching"
	PhaseEncoding    Phase = "encoding"
)

// Dispatcher routes protocol requests to an extension. It holds no
// per-request state and may be used from several goroutines.
type Dispatcher struct {
	ext    *extension.Extension
	codec  Codec
	logger *slog.Logger
	trace  func(Phase)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCodec selects the wire encoding. The default is JSON.
func WithCodec(c Codec) Option {
	return func(d *Dispatcher) { d.codec = c }
}

// WithLogger sets the logger. The default is the extension's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithTrace registers a function called on every phase change.
func WithTrace(fn func(Phase)) Option {
	return func(d *Dispatcher) { d.trace = fn }
}

// NewDispatcher returns a dispatcher serving ext.
func NewDispatcher(ext *extension.Extension, opts ...Option) *Dispatcher {
	d := &Dispatcher{ext: ext, codec: JSON{}, logger: ext.Logger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Codec returns the dispatcher's wire encoding.
func (d *Dispatcher) Codec() Codec { return d.codec }

func (d *Dispatcher) enter(p Phase) {
	if d.trace != nil {
		d.trace(p)
	}
}

// Handle decodes one request, dispatches it, and returns the encoded
// response. It never fails: every problem becomes an error response.
func (d *Dispatcher) Handle(raw []byte) []byte {
	out, _ := d.Respond(raw)
	return out
}

// Respond is Handle that also reports the response status.
func (d *Dispatcher) Respond(raw []byte) ([]byte, Status) {
	d.enter(PhaseDecoding)
	req, err := d.codec.DecodeRequest(raw)
	if err == nil {
		err = checkVersion(req)
	}

	var resp Response
	if err != nil {
		d.logger.Warn("request rejected", "phase", PhaseDecoding, "error_kind", types.KindOf(err), "error", err)
		resp = Failure(err)
	} else {
		d.enter(PhaseDispatching)
		resp = d.dispatch(req)
	}

	d.enter(PhaseEncoding)
	out, err := d.codec.EncodeResponse(resp)
	if err != nil {
		d.logger.Error("encode response", "error", err)
		resp = Failure(fmt.Errorf("encode response: %w", err))
		out, _ = d.codec.EncodeResponse(resp)
	}
	d.enter(PhaseIdle)
	return out, resp.Status
}

// Dispatch runs an already decoded request.
func (d *Dispatcher) Dispatch(req Request) Response {
	if err := checkVersion(req); err != nil {
		return Failure(err)
	}
	return d.dispatch(req)
}

// Serve handles a stream of requests until r is exhausted, writing one
// response per request. A frame that cannot be read at all ends the stream
// with an error; a frame that reads but does not decode gets an error
// response.
func (d *Dispatcher) Serve(r io.Reader, w io.Writer) error {
	frames := d.codec.Frames(r)
	for {
		raw, err := frames.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		if err := d.codec.WriteFrame(w, d.Handle(raw)); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

func checkVersion(req Request) error {
	if req.ProtocolVersion == "" {
		return &types.ProtocolError{Reason: "missing protocol_version"}
	}
	if !slices.Contains(SupportedVersions, req.ProtocolVersion) {
		return &types.UnsupportedProtocolVersionError{
			Requested: req.ProtocolVersion,
			Supported: SupportedVersions,
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(req Request) Response {
	log := d.logger.With("operation", req.Operation, "protocol_version", req.ProtocolVersion)
	log.Debug("dispatching", "phase", PhaseDispatching)

	resp, err := d.run(req)
	if err != nil {
		log.Warn("request failed", "error_kind", types.KindOf(err), "error", err)
		return Failure(err)
	}
	return resp
}

func (d *Dispatcher) run(req Request) (Response, error) {
	switch req.Operation {
	case OpGenerate:
		v, err := single(req)
		if err != nil {
			return Response{}, err
		}
		g, err := d.ext.Generate(v, extension.GenerateInput{
			Existing: orNull(req.Payload),
			Related:  orNull(req.RequiredSettings),
		})
		if err != nil {
			return Response{}, err
		}
		resp := OK(g.Value)
		resp.Complete = &g.Complete
		return resp, nil

	case OpValidate:
		v, err := single(req)
		if err != nil {
			return Response{}, err
		}
		tree, err := payload(req)
		if err != nil {
			return Response{}, err
		}
		if err := d.ext.Validate(v, tree, orNull(req.RequiredSettings)); err != nil {
			return Response{}, err
		}
		return Response{ProtocolVersion: Proto1, Status: StatusOK}, nil

	case OpSet:
		v, err := single(req)
		if err != nil {
			return Response{}, err
		}
		fragment, err := payload(req)
		if err != nil {
			return Response{}, err
		}
		out, err := d.ext.Set(v, orNull(req.Current), fragment)
		if err != nil {
			return Response{}, err
		}
		return OK(out), nil

	case OpGet:
		v, err := single(req)
		if err != nil {
			return Response{}, err
		}
		tree, err := payload(req)
		if err != nil {
			return Response{}, err
		}
		out, err := d.ext.Get(v, tree)
		if err != nil {
			return Response{}, err
		}
		return OK(out), nil

	case OpMigrate:
		from, to := req.VersionContext.From, req.VersionContext.To
		if from == "" || to == "" {
			return Response{}, &types.ProtocolError{Reason: "migrate needs version_context.from and version_context.to"}
		}
		tree, err := payload(req)
		if err != nil {
			return Response{}, err
		}
		out, err := d.ext.Migrate(tree, from, to)
		if err != nil {
			return Response{}, err
		}
		return OK(out), nil

	case OpFloodMigrate:
		from := req.VersionContext.From
		if from == "" {
			return Response{}, &types.ProtocolError{Reason: "flood_migrate needs version_context.from"}
		}
		tree, err := payload(req)
		if err != nil {
			return Response{}, err
		}
		all, err := d.ext.FloodMigrate(tree, from)
		if err != nil {
			return Response{}, err
		}
		items := make([]value.Value, len(all))
		for i, m := range all {
			items[i] = value.Object("version", string(m.Version), "value", m.Value)
		}
		return OK(value.Sequence(items...)), nil

	case OpHelper:
		v, err := single(req)
		if err != nil {
			return Response{}, err
		}
		if req.Helper == "" {
			return Response{}, &types.ProtocolError{Reason: "helper needs a helper name"}
		}
		out, err := d.ext.Helper(v, req.Helper, req.Args)
		if err != nil {
			return Response{}, err
		}
		return OK(out), nil

	case OpListVersions:
		versions, err := value.FromStruct(d.ext.Versions())
		if err != nil {
			return Response{}, fmt.Errorf("list versions: %w", err)
		}
		protocols := make([]value.Value, len(SupportedVersions))
		for i, p := range SupportedVersions {
			protocols[i] = value.String(p)
		}
		return OK(value.Object(
			"extension", d.ext.Name(),
			"protocol_versions", value.Sequence(protocols...),
			"versions", versions,
		)), nil
	}
	return Response{}, &types.ProtocolError{Reason: fmt.Sprintf("unknown operation %q", req.Operation)}
}

// single returns the version of a single-version operation.
func single(req Request) (types.Version, error) {
	if v := req.VersionContext.Version; v != "" {
		return v, nil
	}
	if v := req.VersionContext.From; v != "" {
		return v, nil
	}
	return "", &types.ProtocolError{Reason: fmt.Sprintf("%s needs version_context.version", req.Operation)}
}

func payload(req Request) (value.Value, error) {
	if req.Payload == nil {
		return value.Value{}, &types.ProtocolError{Reason: fmt.Sprintf("%s needs a payload", req.Operation)}
	}
	return *req.Payload, nil
}

func orNull(v *value.Value) value.Value {
	if v == nil {
		return value.Null()
	}
	return *v
}
