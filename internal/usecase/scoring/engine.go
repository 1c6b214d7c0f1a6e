package scoring

import (
	"fmt"
	"math"

	domain "microcredit-backend/internal/domain/scoring"
)

const (
	// ModelVersion tags every result so stored scores can be traced back to
	// the rule set that produced them.
	ModelVersion = "v3.0"

	// MaxEligibleAmount is the hard ceiling for individual clients.
	MaxEligibleAmount = 2_000_000

	// baseEligibleFraction of monthly income is the starting point before the
	// risk-tier schedule scales it down.
	baseEligibleFraction = 1.0 / 3.0
)

// Input is an immutable snapshot of the figures the rule set needs. Zero or
// negative income marks the input invalid and triggers the fallback result.
type Input struct {
	MonthlyIncome  float64
	OtherIncome    float64
	MonthlyCharges float64
	ExistingDebts  float64
}

// Outcome separates a real assessment from the degraded fallback so callers
// cannot silently trust a fallback as a genuine score.
type Outcome struct {
	Result   domain.Result
	Degraded bool
}

// ComputeScore is pure and deterministic: same input, same result, no I/O.
//
// The score is built from three sub-scores on a 1–10 scale: income (0–4),
// disposable-income ratio (0–3) and existing debts (0–3).
func ComputeScore(in Input) Outcome {
	if !in.valid() {
		return fallback()
	}

	income := in.MonthlyIncome
	debtRatio := (in.MonthlyCharges + in.ExistingDebts) / math.Max(income, 1)
	disposable := income - in.MonthlyCharges - in.ExistingDebts
	disposableRatio := disposable / income

	score := 0

	switch {
	case income >= 1_000_000:
		score += 4
	case income >= 500_000:
		score += 3
	case income >= 300_000:
		score += 2
	case income >= 150_000:
		score += 1
	}

	switch {
	case disposableRatio >= 0.5:
		score += 3
	case disposableRatio >= 0.3:
		score += 2
	case disposableRatio >= 0.1:
		score += 1
	}

	switch {
	case in.ExistingDebts == 0:
		score += 3
	case in.ExistingDebts <= income*0.3:
		score += 2
	case in.ExistingDebts <= income*0.5:
		score += 1
	}

	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}

	risk := riskLevel(score)

	res := domain.Result{
		Score:          score,
		RiskLevel:      risk,
		Probability:    float64(score) / 10,
		Decision:       decision(score),
		EligibleAmount: EligibleAmount(income, risk),
		IncomeScore:    incomeScore(income),
		DebtRatioScore: debtRatioScore(debtRatio),
		Factors: domain.FactorList{
			{Name: "monthly_income", Value: income, Impact: 40},
			{Name: "disposable_income", Value: disposable, Impact: 30},
			{Name: "debt_ratio", Value: debtRatio, Impact: 30},
		},
		Recommendations: recommendations(score, debtRatio, disposable),
		ModelVersion:    ModelVersion,
	}
	return Outcome{Result: res}
}

func (in Input) valid() bool {
	return in.MonthlyIncome > 0 &&
		in.OtherIncome >= 0 &&
		in.MonthlyCharges >= 0 &&
		in.ExistingDebts >= 0 &&
		!math.IsNaN(in.MonthlyIncome+in.OtherIncome+in.MonthlyCharges+in.ExistingDebts)
}

// fallback is the documented soft-failure result: fixed mid-range score,
// medium risk, explicit degraded-service recommendation. Callers must treat
// it as unavailable, not as a real assessment.
func fallback() Outcome {
	return Outcome{
		Result: domain.Result{
			Score:           5,
			RiskLevel:       domain.RiskMedium,
			Probability:     0.5,
			Decision:        domain.DecisionPending,
			EligibleAmount:  0,
			Recommendations: domain.StringList{"Scoring service temporarily unavailable"},
			ModelVersion:    ModelVersion,
			Degraded:        true,
		},
		Degraded: true,
	}
}

func riskLevel(score int) domain.RiskLevel {
	switch {
	case score >= 8:
		return domain.RiskLow
	case score >= 5:
		return domain.RiskMedium
	case score >= 3:
		return domain.RiskHigh
	}
	return domain.RiskVeryHigh
}

func decision(score int) domain.Decision {
	switch {
	case score >= 6:
		return domain.DecisionApproved
	case score >= 4:
		return domain.DecisionPending
	}
	return domain.DecisionRejected
}

// EligibleAmount derives the borrowing cap from income and risk tier: a third
// of monthly income, scaled down for riskier tiers, hard-capped and never
// negative.
func EligibleAmount(monthlyIncome float64, risk domain.RiskLevel) float64 {
	base := monthlyIncome * baseEligibleFraction

	switch risk {
	case domain.RiskVeryLow, domain.RiskLow:
		// full base
	case domain.RiskMedium:
		base *= 0.8
	case domain.RiskHigh:
		base *= 0.6
	default:
		base *= 0.5
	}

	amount := math.Round(base)
	if amount < 0 {
		return 0
	}
	return math.Min(amount, MaxEligibleAmount)
}

func incomeScore(income float64) int {
	switch {
	case income >= 1_000_000:
		return 100
	case income >= 500_000:
		return 75
	case income >= 300_000:
		return 50
	case income >= 150_000:
		return 25
	}
	return 10
}

func debtRatioScore(ratio float64) int {
	switch {
	case ratio <= 0.3:
		return 100
	case ratio <= 0.5:
		return 75
	case ratio <= 0.7:
		return 50
	}
	return 25
}

func recommendations(score int, debtRatio, disposable float64) domain.StringList {
	var recs domain.StringList

	if score < 5 {
		if debtRatio > 0.5 {
			recs = append(recs, "Reduce your existing debts to improve your score")
		}
		if disposable < 100_000 {
			recs = append(recs, "Increase your income to improve your repayment capacity")
		}
	}

	if len(recs) == 0 {
		if score >= 8 {
			recs = append(recs, "Excellent profile, you are eligible for the best conditions")
		} else {
			recs = append(recs, fmt.Sprintf("Fair profile (score %d/10), reducing your debts would improve it", score))
		}
	}
	return recs
}
