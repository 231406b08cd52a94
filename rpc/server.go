// Package rpc serves the read-only HTTP query surface of the issuance
// engine. State mutations settle on chain (or through the local custody
// banks); the API only reports positions, estimates and protocol constants.
package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AndriyAntonenko/defi-stablecoin/engine"
	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
)

// Queries is the read-only slice of the engine the server exposes.
type Queries interface {
	AccountInformation(account common.Address) (*big.Int, *big.Int, error)
	CollateralBalance(account, asset common.Address) *big.Int
	HealthFactor(account common.Address) (*big.Int, error)
	MaxMintable(account common.Address) (*big.Int, error)
	RedeemableOverhead(account, asset common.Address) (*big.Int, error)
	EstimateProfit(asset common.Address, debtToCover *big.Int) (engine.Profit, error)
	EstimateLiquidationPrice(asset, account common.Address) (*big.Int, error)
	Assets() []common.Address
}

// Server wraps the chi router around the query surface.
type Server struct {
	queries Queries
	log     *slog.Logger
}

func NewServer(queries Queries, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{queries: queries, log: log}
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/v1/constants", s.handleConstants)
	r.Get("/v1/assets", s.handleAssets)
	r.Get("/v1/accounts/{address}", s.handleAccount)
	r.Get("/v1/accounts/{address}/health", s.handleHealth)
	r.Get("/v1/accounts/{address}/max-mintable", s.handleMaxMintable)
	r.Get("/v1/accounts/{address}/collateral/{asset}", s.handleCollateralBalance)
	r.Get("/v1/accounts/{address}/collateral/{asset}/overhead", s.handleOverhead)
	r.Get("/v1/accounts/{address}/collateral/{asset}/liquidation-price", s.handleLiquidationPrice)
	r.Get("/v1/liquidations/estimate", s.handleEstimateProfit)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("encoding response", "err", err)
	}
}

// statusFor maps engine sentinels onto HTTP status codes. Stale oracle data
// is reported as unavailable rather than a client error: the request was
// well-formed, the protocol is frozen.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrAssetNotAllowed),
		errors.Is(err, engine.ErrAmountMustBePositive):
		return http.StatusBadRequest
	case errors.Is(err, oracle.ErrStalePrice):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func parseAddress(r *http.Request, param string) (common.Address, bool) {
	raw := chi.URLParam(r, param)
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (s *Server) handleConstants(w http.ResponseWriter, r *http.Request) {
	c := engine.ProtocolConstants()
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	assets := s.queries.Assets()
	out := make([]string, len(assets))
	for i, asset := range assets {
		out[i] = asset.Hex()
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"assets": out})
}

type accountResponse struct {
	Address            string `json:"address"`
	Debt               string `json:"debt"`
	CollateralValueUSD string `json:"collateralValueUsd"`
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r, "address")
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid account address"})
		return
	}
	debt, value, err := s.queries.AccountInformation(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, accountResponse{
		Address:            account.Hex(),
		Debt:               debt.String(),
		CollateralValueUSD: value.String(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r, "address")
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid account address"})
		return
	}
	factor, err := s.queries.HealthFactor(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"healthFactor": factor.String()})
}

func (s *Server) handleMaxMintable(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r, "address")
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid account address"})
		return
	}
	headroom, err := s.queries.MaxMintable(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"maxMintable": headroom.String()})
}

func (s *Server) handleCollateralBalance(w http.ResponseWriter, r *http.Request) {
	account, okAccount := parseAddress(r, "address")
	asset, okAsset := parseAddress(r, "asset")
	if !okAccount || !okAsset {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid address"})
		return
	}
	balance := s.queries.CollateralBalance(account, asset)
	s.writeJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

func (s *Server) handleOverhead(w http.ResponseWriter, r *http.Request) {
	account, okAccount := parseAddress(r, "address")
	asset, okAsset := parseAddress(r, "asset")
	if !okAccount || !okAsset {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid address"})
		return
	}
	overhead, err := s.queries.RedeemableOverhead(account, asset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"redeemableOverhead": overhead.String()})
}

func (s *Server) handleLiquidationPrice(w http.ResponseWriter, r *http.Request) {
	account, okAccount := parseAddress(r, "address")
	asset, okAsset := parseAddress(r, "asset")
	if !okAccount || !okAsset {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid address"})
		return
	}
	estimate, err := s.queries.EstimateLiquidationPrice(asset, account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"liquidationPrice": estimate.String()})
}

type profitResponse struct {
	SeizedFromDebt string `json:"seizedFromDebt"`
	Bonus          string `json:"bonus"`
	TotalSeized    string `json:"totalSeized"`
}

func (s *Server) handleEstimateProfit(w http.ResponseWriter, r *http.Request) {
	rawAsset := r.URL.Query().Get("asset")
	if !common.IsHexAddress(rawAsset) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid asset address"})
		return
	}
	debtToCover, ok := new(big.Int).SetString(r.URL.Query().Get("debtToCover"), 10)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid debtToCover amount"})
		return
	}
	profit, err := s.queries.EstimateProfit(common.HexToAddress(rawAsset), debtToCover)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profitResponse{
		SeizedFromDebt: profit.SeizedFromDebt.String(),
		Bonus:          profit.Bonus.String(),
		TotalSeized:    profit.TotalSeized.String(),
	})
}
