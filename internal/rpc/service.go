// Package rpc serves the game service over gRPC. Messages are
// google.protobuf.Struct values carrying the same JSON documents as the HTTP
// API.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/outcome-engine/internal/catalog"
	"github.com/xtding233/outcome-engine/internal/cooldown"
	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/session"
)

const ServiceName = "outcome.v1.GameService"

// GameServer is the service implemented by *Service.
type GameServer interface {
	ListVariants(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Play(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Draw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Commit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Abandon(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cooldown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetCooldown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type method func(GameServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call method) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GameServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(GameServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes outcome.v1.GameService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListVariants", GameServer.ListVariants),
		unary("Play", GameServer.Play),
		unary("Draw", GameServer.Draw),
		unary("Commit", GameServer.Commit),
		unary("Abandon", GameServer.Abandon),
		unary("History", GameServer.History),
		unary("Cooldown", GameServer.Cooldown),
		unary("ResetCooldown", GameServer.ResetCooldown),
		unary("Simulate", GameServer.Simulate),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "outcome/v1/game.proto",
}

// Variants is the read side of the catalog. *catalog.Catalog implements it.
type Variants interface {
	Keys() []string
	Get(key string) (catalog.Entry, error)
	Simulate(key string, trials int, tier string, o game.Overrides) (engine.Report, error)
}

// Service implements GameServer on top of the session registry.
type Service struct {
	Variants Variants
	Sessions *session.Registry
	Logger   zerolog.Logger
}

var _ GameServer = (*Service)(nil)

// NewServer returns a gRPC server with svc registered and request logging.
func NewServer(svc *Service, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(svc.logUnary))
	s := grpc.NewServer(opts...)
	s.RegisterService(&ServiceDesc, svc)
	return s
}

func (s *Service) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	ev := s.Logger.Debug()
	if code := status.Code(err); code == codes.Internal || code == codes.Unknown {
		ev = s.Logger.Error().Err(err)
	}
	ev.Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("elapsed", time.Since(start)).
		Msg("grpc request")
	return resp, err
}

var errInvalid = errors.New("invalid argument")

// statusOf maps engine and session errors onto gRPC codes.
func statusOf(err error) error {
	var locked *cooldown.LockedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &locked):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, session.ErrDrawInFlight), errors.Is(err, session.ErrNoPendingDraw):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, engine.ErrIllegalAttempt), errors.Is(err, errInvalid), errors.Is(err, session.ErrNoPlayer):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, catalog.ErrUnknownVariant):
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// encode turns any JSON-encodable value into a Struct.
func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func field(in *structpb.Struct, key string) *structpb.Value {
	return in.GetFields()[key]
}

func str(in *structpb.Struct, key string) string {
	return field(in, key).GetStringValue()
}

func integer(in *structpb.Struct, key string) (int, bool, error) {
	v := field(in, key)
	if v == nil {
		return 0, false, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != float64(int(n.NumberValue)) {
		return 0, false, fmt.Errorf("%w: %s must be an integer", errInvalid, key)
	}
	return int(n.NumberValue), true, nil
}

// seed accepts a number or, for values past 2^53, a decimal string.
func seed(in *structpb.Struct) (*uint64, error) {
	v := field(in, "seed")
	if v == nil {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if k.NumberValue < 0 || k.NumberValue != float64(uint64(k.NumberValue)) {
			return nil, fmt.Errorf("%w: seed must be a non-negative integer", errInvalid)
		}
		s := uint64(k.NumberValue)
		return &s, nil
	case *structpb.Value_StringValue:
		s, err := strconv.ParseUint(k.StringValue, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: seed: %v", errInvalid, err)
		}
		return &s, nil
	}
	return nil, fmt.Errorf("%w: seed must be a number or string", errInvalid)
}

func (s *Service) session(ctx context.Context, in *structpb.Struct) (*session.Session, error) {
	sess, err := s.Sessions.Session(ctx, str(in, "player"), str(in, "variant"))
	if err != nil {
		return nil, statusOf(err)
	}
	return sess, nil
}

func drawID(in *structpb.Struct) (uuid.UUID, error) {
	raw := str(in, "id")
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id: %v", errInvalid, err)
	}
	return id, nil
}

func (s *Service) ListVariants(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	type variant struct {
		Key   string        `json:"key"`
		Kind  string        `json:"kind"`
		Lock  string        `json:"lock"`
		Tiers []engine.Tier `json:"tiers"`
	}
	out := []variant{}
	for _, k := range s.Variants.Keys() {
		e, err := s.Variants.Get(k)
		if err != nil {
			continue
		}
		out = append(out, variant{Key: k, Kind: e.Variant.Kind(), Lock: e.Params.Lock.String(), Tiers: e.Variant.Tiers()})
	}
	return encode(map[string]any{"variants": out})
}

func (s *Service) Play(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	res, err := sess.Play(ctx)
	if err != nil {
		return nil, statusOf(err)
	}
	return encode(res)
}

// Draw starts a staged draw; a "tier" field forces the tier.
func (s *Service) Draw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	var p *session.Pending
	if _, forced := in.GetFields()["tier"]; forced {
		p, err = sess.DrawTier(ctx, str(in, "tier"))
	} else {
		p, err = sess.Draw(ctx)
	}
	if err != nil {
		return nil, statusOf(err)
	}
	return encode(p.Result())
}

func (s *Service) Commit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.settle(ctx, in, (*session.Session).Commit)
}

func (s *Service) Abandon(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.settle(ctx, in, (*session.Session).Abandon)
}

func (s *Service) settle(ctx context.Context, in *structpb.Struct, op func(*session.Session, context.Context, uuid.UUID) (session.Result, error)) (*structpb.Struct, error) {
	id, err := drawID(in)
	if err != nil {
		return nil, statusOf(err)
	}
	sess, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	res, err := op(sess, ctx, id)
	if err != nil {
		return nil, statusOf(err)
	}
	return encode(res)
}

// History returns {"entries": [...]}, newest first; "n" limits the count.
func (s *Service) History(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	n, _, err := integer(in, "n")
	if err != nil {
		return nil, statusOf(err)
	}
	sess, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	return encode(map[string]any{"entries": sess.History(n)})
}

func (s *Service) Cooldown(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	st, err := sess.Cooldown(ctx)
	if err != nil {
		return nil, statusOf(err)
	}
	out := map[string]any{
		"locked":       st.Locked,
		"remaining_ms": st.Remaining.Milliseconds(),
		"lock_ms":      st.Lock.Milliseconds(),
	}
	if st.Locked {
		out["countdown"] = cooldown.Countdown(cooldown.ParseLang(str(in, "lang")), st.Remaining)
	}
	return encode(out)
}

func (s *Service) ResetCooldown(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := sess.ResetCooldown(ctx); err != nil {
		return nil, statusOf(err)
	}
	return &structpb.Struct{}, nil
}

// Simulate runs a calibration: {"variant", "trials", "tier"?, "seed"?}.
func (s *Service) Simulate(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	trials, ok, err := integer(in, "trials")
	if err == nil && (!ok || trials <= 0) {
		err = fmt.Errorf("%w: trials must be positive", errInvalid)
	}
	if err != nil {
		return nil, statusOf(err)
	}
	sd, err := seed(in)
	if err != nil {
		return nil, statusOf(err)
	}
	rep, err := s.Variants.Simulate(str(in, "variant"), trials, str(in, "tier"), game.Overrides{Seed: sd})
	if err != nil {
		return nil, statusOf(err)
	}
	return encode(rep)
}
