// Package skill implements a self-contained 1-vs-1 Bayesian skill rating,
// matching the external API the server depends on (Rating, Rate1v1,
// Rate1v1Draw, Quality1v1): a mean mu, an uncertainty sigma, and a quality
// score for how even a prospective match is. No third-party Go package in
// the retrieval pack implements TrueSkill-style rating, so the math is
// ported here directly against the documented interface.
package skill

import "math"

const (
	defaultMu       = 25.0
	defaultSigma    = defaultMu / 3.0
	beta            = defaultSigma / 2.0
	tau             = defaultSigma / 100.0
	drawProbability = 0.1
)

// Rating is a Gaussian belief about a player's skill.
type Rating struct {
	Mu    float64
	Sigma float64
}

// NewRating returns the default prior used for a player with no history.
func NewRating() Rating {
	return Rating{Mu: defaultMu, Sigma: defaultSigma}
}

func pdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func cdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// vExceeds and wExceeds are the truncated-Gaussian correction terms used
// when one player is known to have beaten the other.
func vExceeds(t, eps float64) float64 {
	denom := cdf(t - eps)
	if denom < 1e-12 {
		return -t + eps
	}
	return pdf(t-eps) / denom
}

func wExceeds(t, eps float64) float64 {
	v := vExceeds(t, eps)
	return v * (v + t - eps)
}

// vWithin and wWithin are the truncated-Gaussian correction terms used
// when the match is known to have been a draw.
func vWithin(t, eps float64) float64 {
	a := -eps - t
	b := eps - t
	denom := cdf(b) - cdf(a)
	if denom < 1e-12 {
		return a
	}
	return (pdf(a) - pdf(b)) / denom
}

func wWithin(t, eps float64) float64 {
	a := -eps - t
	b := eps - t
	denom := cdf(b) - cdf(a)
	if denom < 1e-12 {
		return 1
	}
	v := vWithin(t, eps)
	return v*v + (a*pdf(a)-b*pdf(b))/denom
}

func drawMargin(c float64) float64 {
	return math.Sqrt2 * beta * erfInv(drawProbability)
}

// erfInv is a rational approximation of the inverse error function,
// precise enough for the draw margin derived from it on each rating
// update.
func erfInv(x float64) float64 {
	a := 0.147
	ln := math.Log(1 - x*x)
	t1 := 2/(math.Pi*a) + ln/2
	return sign(x) * math.Sqrt(math.Sqrt(t1*t1-ln/a)-t1)
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// Rate1v1 updates winner and loser ratings after a decisive (non-drawn)
// match. It always applies the full-strength update.
func Rate1v1(winner, loser Rating) (newWinner, newLoser Rating) {
	return rate(winner, loser, false)
}

// Rate1v1Draw updates both ratings for a drawn match. Callers are expected
// to blend the result with the prior rating at reduced weight, per the
// server's rating-update rule (draws carry little information).
func Rate1v1Draw(a, b Rating) (newA, newB Rating) {
	return rate(a, b, true)
}

func rate(a, b Rating, drawn bool) (Rating, Rating) {
	c2 := 2*beta*beta + a.Sigma*a.Sigma + b.Sigma*b.Sigma
	c := math.Sqrt(c2)
	eps := drawMargin(c)
	t := (a.Mu - b.Mu) / c

	var v, w float64
	if drawn {
		v = vWithin(t, eps)
		w = wWithin(t, eps)
	} else {
		v = vExceeds(t, eps)
		w = wExceeds(t, eps)
	}

	aSigma2 := a.Sigma * a.Sigma
	bSigma2 := b.Sigma * b.Sigma

	newAMu := a.Mu + (aSigma2/c)*v
	newBMu := b.Mu - (bSigma2/c)*v

	newASigma2 := aSigma2 * (1 - (aSigma2/c2)*w)
	newBSigma2 := bSigma2 * (1 - (bSigma2/c2)*w)

	newA := Rating{Mu: newAMu, Sigma: math.Sqrt(math.Max(newASigma2, tau*tau))}
	newB := Rating{Mu: newBMu, Sigma: math.Sqrt(math.Max(newBSigma2, tau*tau))}
	return newA, newB
}

// Quality1v1 returns a scalar in (0, 1], higher when the two ratings are
// more likely to produce an even match.
func Quality1v1(a, b Rating) float64 {
	sigmaSum2 := a.Sigma*a.Sigma + b.Sigma*b.Sigma
	denom := 2*beta*beta + sigmaSum2
	muDiff := a.Mu - b.Mu

	term1 := math.Sqrt(2 * beta * beta / denom)
	term2 := math.Exp(-(muDiff * muDiff) / (2 * denom))
	return term1 * term2
}
