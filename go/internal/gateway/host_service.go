package gateway

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/huddle/go/internal/betting"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/events"
	"github.com/mcdev12/huddle/go/internal/gamestate"
	"github.com/mcdev12/huddle/go/internal/leaderboard"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/mcdev12/huddle/go/internal/session"
	"github.com/rs/zerolog/log"
)

// HostServiceName is the fully-qualified name of the host service.
const HostServiceName = "huddle.v1.HostService"

const (
	HostServiceResolveBetProcedure   = "/huddle.v1.HostService/ResolveBet"
	HostServiceGetBetStatsProcedure  = "/huddle.v1.HostService/GetBetStats"
	HostServicePublishRecapProcedure = "/huddle.v1.HostService/PublishRecap"
)

// defaultRecapAuthor signs recaps published without an author
const defaultRecapAuthor = "host"

type ResolveBetRequest struct {
	BetID   string `json:"betId"`
	Outcome string `json:"outcome"`
}

type ResolveBetResponse struct {
	Result events.BetResolvedPayload `json:"result"`
}

type GetBetStatsRequest struct {
	BetID string `json:"betId"`
}

type GetBetStatsResponse struct {
	Stats models.BetStats `json:"stats"`
}

type PublishRecapRequest struct {
	AuthorID string `json:"authorId"`
}

type PublishRecapResponse struct {
	Recap *models.Recap `json:"recap"`
}

// HostServiceHandler is the host-only surface: settling prop bets and publishing recaps
type HostServiceHandler interface {
	ResolveBet(context.Context, *connect.Request[ResolveBetRequest]) (*connect.Response[ResolveBetResponse], error)
	GetBetStats(context.Context, *connect.Request[GetBetStatsRequest]) (*connect.Response[GetBetStatsResponse], error)
	PublishRecap(context.Context, *connect.Request[PublishRecapRequest]) (*connect.Response[PublishRecapResponse], error)
}

// NewHostServiceHandler builds an HTTP handler for the host service. It returns the path to
// mount it on.
func NewHostServiceHandler(svc HostServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	resolveBet := connect.NewUnaryHandler(HostServiceResolveBetProcedure, svc.ResolveBet, opts...)
	getBetStats := connect.NewUnaryHandler(HostServiceGetBetStatsProcedure, svc.GetBetStats, opts...)
	publishRecap := connect.NewUnaryHandler(HostServicePublishRecapProcedure, svc.PublishRecap, opts...)

	return "/" + HostServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case HostServiceResolveBetProcedure:
			resolveBet.ServeHTTP(w, r)
		case HostServiceGetBetStatsProcedure:
			getBetStats.ServeHTTP(w, r)
		case HostServicePublishRecapProcedure:
			publishRecap.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// HostServiceClient calls a host service over Connect with JSON
type HostServiceClient struct {
	resolveBet   *connect.Client[ResolveBetRequest, ResolveBetResponse]
	getBetStats  *connect.Client[GetBetStatsRequest, GetBetStatsResponse]
	publishRecap *connect.Client[PublishRecapRequest, PublishRecapResponse]
}

func NewHostServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *HostServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &HostServiceClient{
		resolveBet:   connect.NewClient[ResolveBetRequest, ResolveBetResponse](httpClient, baseURL+HostServiceResolveBetProcedure, opts...),
		getBetStats:  connect.NewClient[GetBetStatsRequest, GetBetStatsResponse](httpClient, baseURL+HostServiceGetBetStatsProcedure, opts...),
		publishRecap: connect.NewClient[PublishRecapRequest, PublishRecapResponse](httpClient, baseURL+HostServicePublishRecapProcedure, opts...),
	}
}

func (c *HostServiceClient) ResolveBet(ctx context.Context, req *connect.Request[ResolveBetRequest]) (*connect.Response[ResolveBetResponse], error) {
	return c.resolveBet.CallUnary(ctx, req)
}

func (c *HostServiceClient) GetBetStats(ctx context.Context, req *connect.Request[GetBetStatsRequest]) (*connect.Response[GetBetStatsResponse], error) {
	return c.getBetStats.CallUnary(ctx, req)
}

func (c *HostServiceClient) PublishRecap(ctx context.Context, req *connect.Request[PublishRecapRequest]) (*connect.Response[PublishRecapResponse], error) {
	return c.publishRecap.CallUnary(ctx, req)
}

// HostService runs host actions directly against the shared store
type HostService struct {
	shared   docstore.Store
	betting  *betting.Engine
	recapper *gamestate.Recapper
}

var _ HostServiceHandler = (*HostService)(nil)

// NewHostService creates the host service for app
func NewHostService(app *session.AppContext) *HostService {
	app = app.WithDefaults()
	stores := docstore.Fixed(app.Shared)
	table := leaderboard.NewTable(stores, app.Leaderboard)
	return &HostService{
		shared:   app.Shared,
		betting:  betting.NewEngine(app.Catalog, stores, table, app.Clock),
		recapper: gamestate.NewRecapper(gamestate.NewRepository(stores), app.Collab, app.Clock),
	}
}

func (s *HostService) ResolveBet(ctx context.Context, req *connect.Request[ResolveBetRequest]) (*connect.Response[ResolveBetResponse], error) {
	if !s.shared.Available() {
		return nil, connect.NewError(connect.CodeUnavailable, docstore.ErrUnavailable)
	}
	result, err := s.betting.ResolveBet(ctx, req.Msg.BetID, req.Msg.Outcome)
	if err != nil {
		log.Warn().Err(err).Str("bet_id", req.Msg.BetID).Msg("host resolve rejected")
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ResolveBetResponse{Result: result}), nil
}

func (s *HostService) GetBetStats(ctx context.Context, req *connect.Request[GetBetStatsRequest]) (*connect.Response[GetBetStatsResponse], error) {
	if !s.shared.Available() {
		return nil, connect.NewError(connect.CodeUnavailable, docstore.ErrUnavailable)
	}
	stats, err := s.betting.Stats(ctx, req.Msg.BetID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetBetStatsResponse{Stats: stats}), nil
}

func (s *HostService) PublishRecap(ctx context.Context, req *connect.Request[PublishRecapRequest]) (*connect.Response[PublishRecapResponse], error) {
	if !s.shared.Available() {
		return nil, connect.NewError(connect.CodeUnavailable, docstore.ErrUnavailable)
	}
	author := req.Msg.AuthorID
	if author == "" {
		author = defaultRecapAuthor
	}
	recap, err := s.recapper.Publish(ctx, author)
	if err != nil {
		log.Error().Err(err).Msg("failed to publish recap")
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PublishRecapResponse{Recap: recap}), nil
}
