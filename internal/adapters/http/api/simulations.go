package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/okian/fundora/internal/domain/simulation"
)

type simulationRequest struct {
	Principal  float64  `json:"principal"`
	Years      int      `json:"years"`
	AnnualRate *float64 `json:"annual_rate,omitempty"`
	StartupID  string   `json:"startup_id,omitempty"`
}

type simulationResponse struct {
	simulation.Result
	Currency string            `json:"currency"`
	Display  map[string]string `json:"display"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "api.simulate"

	var req simulationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, wrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := s.deps.Simulate(r.Context(), req.Principal, req.Years, req.AnnualRate, req.StartupID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	display := make(map[string]string, 3)
	for name, amount := range map[string]decimal.Decimal{
		"principal":   res.Principal,
		"final_value": res.FinalValue,
		"total_gain":  res.TotalGain,
	} {
		text, derr := simulation.Display(amount, s.currency)
		if derr != nil {
			s.fail(w, r, derr)
			return
		}
		display[name] = text
	}
	writeJSON(w, http.StatusOK, simulationResponse{Result: res, Currency: s.currency, Display: display})
}
