package api

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/fundora/internal/domain/collection"
	"github.com/okian/fundora/internal/domain/model"
)

type listResponse struct {
	Count    int                    `json:"count"`
	SortBy   collection.SortKey     `json:"sort_by,omitempty"`
	Startups []model.EnrichedEntity `json:"startups"`
}

func (s *Server) handleListStartups(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_startups"

	q := r.URL.Query()
	filters, err := parseFilters(q)
	if err != nil {
		s.fail(w, r, wrapKind(op, ErrBadRequest, err))
		return
	}
	key, err := collection.ParseSortKey(q.Get("sort_by"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	entities, err := s.deps.Entities(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := collection.FilterAndSort(entities, filters, key)
	writeJSON(w, http.StatusOK, listResponse{Count: len(out), SortBy: key, Startups: out})
}

func (s *Server) handleGetStartup(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Entity(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Analytics(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// parseFilters reads listing filters from query parameters. Empty
// parameters leave the filter off.
func parseFilters(q url.Values) (collection.Filters, error) {
	var (
		f   collection.Filters
		err error
	)
	f.Industry = strings.TrimSpace(q.Get("industry"))

	if v := strings.TrimSpace(q.Get("risk")); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return f, fmt.Errorf("risk: %w", perr)
		}
		f.RiskSlider = &n
	}
	if v := strings.TrimSpace(q.Get("risk_tolerance")); v != "" {
		level, ok := model.ParseRiskLevel(v)
		if !ok {
			return f, fmt.Errorf("%w: risk_tolerance %q", collection.ErrInvalidFilter, v)
		}
		f.RiskTolerance = level
	}
	if f.MinReturn, err = floatParam(q, "min_return"); err != nil {
		return f, err
	}
	if f.MinGrowthRate, err = floatParam(q, "min_growth_rate"); err != nil {
		return f, err
	}
	if f.MinMarketGrowth, err = floatParam(q, "min_market_growth"); err != nil {
		return f, err
	}

	askMin, err := floatParam(q, "funding_ask_min")
	if err != nil {
		return f, err
	}
	askMax, err := floatParam(q, "funding_ask_max")
	if err != nil {
		return f, err
	}
	if askMin != nil || askMax != nil {
		f.FundingAsk = &collection.Range{Min: askMin, Max: askMax}
	}

	if v := strings.TrimSpace(q.Get("market_growth_tier")); v != "" {
		tier, terr := collection.ParseTier(v)
		if terr != nil {
			return f, terr
		}
		f.MarketGrowthTier = tier
	}
	return f, f.Validate()
}

func floatParam(q url.Values, name string) (*float64, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s: %q is not a finite number", name, v)
	}
	return &f, nil
}
