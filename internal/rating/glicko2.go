// internal/rating/glicko2.go
package rating

import "math"

const (
	// GlickoScale is the multiplier used for converting between Elo and Glicko2's mu.
	GlickoScale = 173.7178
	// DefaultMu is the baseline rating (1500) on the Elo scale.
	DefaultMu = 1500.0
	// DefaultPhi is the baseline rating deviation (RD) on the Elo scale.
	DefaultPhi = 350.0
	// DefaultSigma is the starting volatility.
	DefaultSigma = 0.06
	// Tau is the constraint on volatility changes.
	Tau = 0.5
	// Epsilon is the tolerance used in iteration stopping conditions.
	Epsilon = 0.000001
)

// Rating is a player's Glicko-2 state on the familiar 1500-based scale.
type Rating struct {
	Value      float64 `json:"value"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
}

// Default is the rating of a player who has not finished a match yet.
func Default() Rating {
	return Rating{Value: DefaultMu, Deviation: DefaultPhi, Volatility: DefaultSigma}
}

// IsZero reports whether r was never initialized.
func (r Rating) IsZero() bool {
	return r == Rating{}
}

// glicko is a rating transformed into Glicko-2 space.
type glicko struct {
	mu, phi, sigma float64
}

func toGlicko(r Rating) glicko {
	return glicko{
		mu:    (r.Value - DefaultMu) / GlickoScale,
		phi:   r.Deviation / GlickoScale,
		sigma: r.Volatility,
	}
}

func (g glicko) rating() Rating {
	return Rating{
		Value:      g.mu*GlickoScale + DefaultMu,
		Deviation:  g.phi * GlickoScale,
		Volatility: g.sigma,
	}
}

// Update1v1 rates a single decided match as one rating period for both players.
func Update1v1(winner, loser Rating) (Rating, Rating) {
	w, l := toGlicko(winner), toGlicko(loser)
	return update(w, l, 1).rating(), update(l, w, 0).rating()
}

// update performs a single-match Glicko-2 update of r against opp, given the score in [0..1].
func update(r, opp glicko, score float64) glicko {
	gVal := g(opp.phi)
	EVal := E(r.mu, opp.mu, opp.phi)

	v := 1.0 / (gVal * gVal * EVal * (1 - EVal))
	delta := v * gVal * (score - EVal)

	// volatility iteration (Illinois variant of regula falsi)
	a := math.Log(r.sigma * r.sigma)
	fx := func(x float64) float64 {
		return f(x, r.phi, v, delta, a)
	}

	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for fx(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fx(A), fx(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fx(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	newSigma := math.Exp(A / 2)
	phiStar := math.Sqrt(r.phi*r.phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muPrime := r.mu + phiPrime*phiPrime*gVal*(score-EVal)

	return glicko{mu: muPrime, phi: phiPrime, sigma: newSigma}
}

// g is the G(phi) factor from Glicko2, applying the standard formula 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

// E is the expected score formula in Glicko2 space, E(mu,mu2,phi2)=1/(1+exp[-g(phi2)*(mu-mu2)])
func E(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the Glicko2 volatility root-finding function.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return (num / den) - ((x - a) / (Tau * Tau))
}
